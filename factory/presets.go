/*
presets.go - Canned template and card definitions

PURPOSE:
  Ready-made JSON definitions for seeding a fresh install or loading the
  demo scenario. Kept as JSON (not structs) so they exercise the same
  parse path real admin-supplied definitions go through.

SEE ALSO:
  - ratecard.go: the parser these feed
  - api/scenarios.go: the demo loader using them
*/
package factory

import "encoding/json"

// IndustrialTemplateJSON returns JSON for a standard industrial shift
// template: weekday day/night plus weekend shifts, mileage and
// accommodation expense categories.
func IndustrialTemplateJSON(id, companyID, name string) string {
	tj := map[string]interface{}{
		"id":         id,
		"company_id": companyID,
		"name":       name,
		"timeframes": []map[string]interface{}{
			{"id": id + "-day", "name": "Mon-Fri Day", "start": "07:00", "end": "17:00"},
			{"id": id + "-night", "name": "Mon-Fri Night", "start": "19:00", "end": "05:00"},
			{"id": id + "-sat", "name": "Saturday", "start": "07:00", "end": "17:00"},
			{"id": id + "-sun", "name": "Sunday/Bank Holiday", "start": "07:00", "end": "17:00"},
		},
		"expense_categories": []map[string]interface{}{
			{"id": id + "-mileage", "name": "Mileage"},
			{"id": id + "-accom", "name": "Accommodation"},
			{"id": id + "-other", "name": "Other"},
		},
		"resource_categories": []string{"Mechanical", "Electrical", "Civils"},
	}
	b, _ := json.MarshalIndent(tj, "", "  ")
	return string(b)
}

// TradeCardJSON returns JSON for a single-role card priced across the
// industrial template's day shift, linked to templateID.
func TradeCardJSON(id, companyID, kind, templateID, role string, baseRate, otRate float64) string {
	cj := map[string]interface{}{
		"id":          id,
		"company_id":  companyID,
		"kind":        kind,
		"template_id": templateID,
		"rates": []map[string]interface{}{{
			"role":           role,
			"timeframe_id":   templateID + "-day",
			"base_rate":      baseRate,
			"ot_rate":        otRate,
			"effective_from": "2025-01-01",
		}},
		"expenses": []map[string]interface{}{{
			"category_id": templateID + "-mileage",
			"rate":        0.45,
			"unit_type":   "per_mile",
		}},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}

// LegacyCardJSON returns JSON for a card that predates templates and
// uses free-form shift-type strings.
func LegacyCardJSON(id, companyID, kind, role, shiftType string, baseRate, otRate float64) string {
	cj := map[string]interface{}{
		"id":         id,
		"company_id": companyID,
		"kind":       kind,
		"rates": []map[string]interface{}{{
			"role":           role,
			"shift_type":     shiftType,
			"base_rate":      baseRate,
			"ot_rate":        otRate,
			"effective_from": "2025-01-01",
		}},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}
