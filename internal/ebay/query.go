package ebay

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/catalog"
	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// searchLimit is the upstream's maximum page size.
const searchLimit = 200

// Anchor categories for aspect filters. The upstream applies aspect
// filters per-category, so one anchor is chosen per kind.
const (
	jewelryAnchorCategory = "281"
	watchAnchorCategory   = "31387"
)

// BuildQuery assembles the search parameters for a task. override, when
// non-empty, replaces the keyword portion: a metal name for the jewelry
// multi-metal branch, a full query string for the gemstone multi-query
// branch.
func BuildQuery(task *model.Task, override string) url.Values {
	v := url.Values{}
	v.Set("q", searchKeywords(task, override))
	v.Set("limit", fmt.Sprintf("%d", searchLimit))
	v.Set("sort", "newlyListed")
	if f := filterString(task); f != "" {
		v.Set("filter", f)
	}
	if af := aspectFilter(task, override); af != "" {
		v.Set("aspect_filter", af)
	}
	return v
}

func searchKeywords(task *model.Task, override string) string {
	switch task.ItemType {
	case model.ItemTypeJewelry:
		if override != "" {
			return override + " jewelry"
		}
		if task.Jewelry != nil && len(task.Jewelry.Metals) > 0 {
			return strings.ToLower(task.Jewelry.Metals[0]) + " jewelry"
		}
		return "jewelry"
	case model.ItemTypeWatch:
		parts := []string{}
		if task.Watch != nil {
			if task.Watch.Brand != "" {
				parts = append(parts, task.Watch.Brand)
			}
			if task.Watch.Model != "" {
				parts = append(parts, task.Watch.Model)
			}
			if task.Watch.Keywords != "" {
				parts = append(parts, task.Watch.Keywords)
			}
		}
		if len(parts) == 0 {
			return "watch"
		}
		return strings.Join(parts, " ")
	case model.ItemTypeGemstone:
		if override != "" {
			return override
		}
		if task.Gemstone != nil && len(task.Gemstone.StoneTypes) > 0 {
			return strings.ToLower(task.Gemstone.StoneTypes[0]) + " loose"
		}
		return "loose gemstone"
	}
	return string(task.ItemType)
}

// filterString renders the composite filter: price ceiling, OR-joined
// category ids, OR-joined condition ids.
func filterString(task *model.Task) string {
	var parts []string
	if task.MaxPrice > 0 {
		parts = append(parts, fmt.Sprintf("price:[..%.0f],priceCurrency:USD", task.MaxPrice))
	}
	if cats := taskCategories(task); len(cats) > 0 {
		parts = append(parts, "categoryIds:{"+strings.Join(cats, "|")+"}")
	}
	if ids := conditionIDs(taskConditions(task)); len(ids) > 0 {
		parts = append(parts, "conditionIds:{"+strings.Join(ids, "|")+"}")
	}
	return strings.Join(parts, ",")
}

// aspectFilter renders the per-category aspect expression for jewelry and
// watch tasks. Gemstone searches rely on keywords alone.
func aspectFilter(task *model.Task, metalOverride string) string {
	switch task.ItemType {
	case model.ItemTypeJewelry:
		metal := metalOverride
		if metal == "" && task.Jewelry != nil && len(task.Jewelry.Metals) > 0 {
			metal = task.Jewelry.Metals[0]
		}
		if metal == "" {
			return ""
		}
		return fmt.Sprintf("categoryId:%s,Metal:{%s}", jewelryAnchorCategory, titleWord(metal))
	case model.ItemTypeWatch:
		if task.Watch == nil || task.Watch.Brand == "" {
			return ""
		}
		return fmt.Sprintf("categoryId:%s,Brand:{%s}", watchAnchorCategory, task.Watch.Brand)
	}
	return ""
}

func taskCategories(task *model.Task) []string {
	switch {
	case task.Jewelry != nil:
		return task.Jewelry.Categories
	case task.Watch != nil:
		return task.Watch.Categories
	case task.Gemstone != nil:
		return task.Gemstone.Categories
	}
	return nil
}

func taskConditions(task *model.Task) []string {
	switch {
	case task.Jewelry != nil:
		return task.Jewelry.Conditions
	case task.Watch != nil:
		return task.Watch.Conditions
	case task.Gemstone != nil:
		return task.Gemstone.Conditions
	}
	return nil
}

// conditionIDs maps condition names to upstream ids, deduplicating since
// synonyms (used, pre-owned) share an id.
func conditionIDs(names []string) []string {
	seen := make(map[string]bool, len(names))
	var ids []string
	for _, name := range names {
		if id := catalog.ConditionID(name); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
