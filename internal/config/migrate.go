package config

import "fmt"

// Migrate transforms a raw legacy job-scraper document into the current
// descriptor shape (still as a map, so the caller's normal decode path
// handles defaulting). It is idempotent: running Migrate on an
// already-current document returns it unchanged, and running it twice on a
// legacy document yields the same result as running it once, because the
// second pass no longer looksLegacy (source_id/engine are now present).
//
// The unsequential/step_page mapping follows the recommendation recorded in
// DESIGN.md: unsequential=true becomes paging.mode="offset" with
// step=step_page; otherwise paging.mode="page". The ambiguous combination
// of step_page set without unsequential is flagged as a warning rather than
// guessed silently.
func Migrate(raw map[string]interface{}) (map[string]interface{}, []string) {
	if !looksLegacy(raw) {
		return raw, nil
	}
	return migrateLegacyRaw(raw)
}

func migrateLegacyRaw(raw map[string]interface{}) (map[string]interface{}, []string) {
	var warnings []string

	str := func(key string) string {
		v, _ := raw[key].(string)
		return v
	}
	intVal := func(key string) int {
		switch v := raw[key].(type) {
		case int:
			return v
		case float64:
			return int(v)
		}
		return 0
	}
	boolVal := func(key string) bool {
		v, _ := raw[key].(bool)
		return v
	}

	sourceID := str("name")
	if sourceID == "" {
		sourceID = "migrated_source"
	}

	unsequential := boolVal("unsequential")
	stepPage := intVal("step_page")
	if stepPage != 0 && !unsequential {
		warnings = append(warnings, fmt.Sprintf(
			"legacy config: step_page=%d set without unsequential=true; treating paging as page-mode per recommended migration", stepPage))
	}

	pagingMode := "page"
	step := 1
	if unsequential {
		pagingMode = "offset"
		if stepPage > 0 {
			step = stepPage
		}
	}

	maxPages := intVal("max_pages")
	if maxPages <= 0 {
		maxPages = 1
	}

	engine := map[string]interface{}{
		"type":      "http",
		"timeout_s": 30.0,
	}
	if ua := str("user_agent"); ua != "" {
		engine["user_agent"] = ua
	}
	if mr := intVal("max_retries"); mr > 0 {
		engine["max_retries"] = mr
	}

	var actions []interface{}
	if boolVal("action_scrolling") {
		actions = append(actions, map[string]interface{}{
			"type": "scroll", "repeat": 3, "min_px": 200, "max_px": 800,
		})
		warnings = append(warnings, "legacy config: action_scrolling migrated to a scroll action with default px range")
	}
	if click := str("action_click"); click != "" {
		actions = append(actions, map[string]interface{}{
			"type": "click", "selector": click,
		})
	}
	if len(actions) > 0 {
		engine["type"] = "browser"
	}

	discovery := map[string]interface{}{
		"link_extract": map[string]interface{}{
			"method":  "regex",
			"pattern": str("pattern"),
		},
	}

	out := map[string]interface{}{
		"source_id": sourceID,
		"engine":    engine,
		"entrypoints": []interface{}{
			map[string]interface{}{
				"url": str("base_url"),
				"paging": map[string]interface{}{
					"mode":  pagingMode,
					"start": 1,
					"pages": maxPages,
					"step":  step,
				},
			},
		},
		"discovery": discovery,
	}
	if len(actions) > 0 {
		out["actions"] = actions
	}
	if ts := str("title_selector"); ts != "" {
		parse, _ := out["parse"].(map[string]interface{})
		if parse == nil {
			parse = map[string]interface{}{}
		}
		parse["title_selector"] = ts
		out["parse"] = parse
	}
	if ts := str("text_selector"); ts != "" {
		parse, _ := out["parse"].(map[string]interface{})
		if parse == nil {
			parse = map[string]interface{}{}
		}
		parse["text_selector"] = ts
		out["parse"] = parse
	}
	if fmtStr := str("output_format"); fmtStr != "" {
		out["storage"] = map[string]interface{}{"items_format": fmtStr}
	}

	if str("pattern") == "" {
		warnings = append(warnings, "legacy config: pattern is empty; migrated link_extract.pattern will match nothing")
	}

	return out, warnings
}
