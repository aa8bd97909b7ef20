package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlattenJSONLD turns an arbitrary JSON-LD value into a flat list of typed
// objects: arrays are expanded, @graph wrappers are unwrapped recursively,
// scalars are dropped. The contract is intentionally small so it can be
// tested without any network code.
func FlattenJSONLD(value interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	flattenInto(value, &out)
	return out
}

func flattenInto(value interface{}, out *[]map[string]interface{}) {
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			flattenInto(item, out)
		}
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			flattenInto(graph, out)
		}
		*out = append(*out, v)
	}
}

// ParseJSONLDScripts parses each raw script body and flattens the results.
// Malformed scripts are skipped; a page often carries several blocks of which
// only some are valid.
func ParseJSONLDScripts(scripts []string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, body := range scripts {
		var value interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &value); err != nil {
			continue
		}
		out = append(out, FlattenJSONLD(value)...)
	}
	return out
}

// HasType reports whether a JSON-LD object carries the given @type. The type
// field may be a string or an array of strings.
func HasType(obj map[string]interface{}, want string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// ProductObjects selects the Product-typed objects from a flattened set.
func ProductObjects(objs []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, obj := range objs {
		if HasType(obj, "Product") {
			out = append(out, obj)
		}
	}
	return out
}

// OfferObjects extracts the offer objects beneath a Product. The offers field
// may be a single Offer, an array, or an AggregateOffer wrapping a nested
// offers array; one level of aggregate nesting is always unwrapped so each
// nested offer becomes its own record.
func OfferObjects(product map[string]interface{}) []map[string]interface{} {
	raw, ok := product["offers"]
	if !ok {
		return nil
	}

	var out []map[string]interface{}
	for _, obj := range asObjectList(raw) {
		if nested, ok := obj["offers"]; ok {
			inner := asObjectList(nested)
			if len(inner) > 0 {
				out = append(out, inner...)
				continue
			}
		}
		out = append(out, obj)
	}
	return out
}

func asObjectList(value interface{}) []map[string]interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}
	case []interface{}:
		var out []map[string]interface{}
		for _, item := range v {
			if obj, ok := item.(map[string]interface{}); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}

// stringField reads a string-valued field, coercing numbers to their decimal
// representation since JSON-LD price fields appear both quoted and bare.
func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return trimFloat(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// offerPrice walks the price cascade of one JSON-LD offer: price →
// priceSpecification.price → priceSpecification.priceSpecification.price.
func offerPrice(offer map[string]interface{}) string {
	if p := stringField(offer, "price"); p != "" {
		return p
	}
	if spec, ok := offer["priceSpecification"].(map[string]interface{}); ok {
		if p := stringField(spec, "price"); p != "" {
			return p
		}
		if inner, ok := spec["priceSpecification"].(map[string]interface{}); ok {
			if p := stringField(inner, "price"); p != "" {
				return p
			}
		}
	}
	return ""
}

// offerCurrency walks the equivalent priceCurrency cascade.
func offerCurrency(offer map[string]interface{}) string {
	if c := stringField(offer, "priceCurrency"); c != "" {
		return c
	}
	if spec, ok := offer["priceSpecification"].(map[string]interface{}); ok {
		if c := stringField(spec, "priceCurrency"); c != "" {
			return c
		}
		if inner, ok := spec["priceSpecification"].(map[string]interface{}); ok {
			if c := stringField(inner, "priceCurrency"); c != "" {
				return c
			}
		}
	}
	return ""
}

// offerTaxIncluded reads priceSpecification.valueAddedTaxIncluded as a
// tri-state string: "true", "false" or "unknown".
func offerTaxIncluded(offer map[string]interface{}) string {
	if spec, ok := offer["priceSpecification"].(map[string]interface{}); ok {
		if v, ok := spec["valueAddedTaxIncluded"].(bool); ok {
			if v {
				return "true"
			}
			return "false"
		}
	}
	return "unknown"
}
