package acumba

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// The platform's responses are loosely shaped: a catalog may arrive as a
// list of one-key objects or as one big id->name object, and detail
// payloads are sometimes wrapped in a single-key envelope. Everything is
// normalized here, before it reaches the domain model; any shape this file
// does not recognize becomes a ValidationError.

type idName struct {
	Id   int64
	Name string
}

func parseId(endpoint, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Endpoint: endpoint,
			Reason:   fmt.Sprintf("non-numeric id %q", raw),
		}
	}
	return id, nil
}

// decodeKeyedCatalog accepts both catalog shapes:
//
//	[{"123": "Name"}, {"456": "Other"}]
//	{"123": "Name", "456": "Other"}
func decodeKeyedCatalog(endpoint string, raw json.RawMessage) ([]idName, error) {
	var asList []map[string]string
	if err := json.Unmarshal(raw, &asList); err == nil {
		var out []idName
		for _, item := range asList {
			for key, name := range item {
				id, err := parseId(endpoint, key)
				if err != nil {
					return nil, err
				}
				out = append(out, idName{Id: id, Name: name})
			}
		}
		sortCatalog(out)
		return out, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		var out []idName
		for key, name := range asMap {
			id, err := parseId(endpoint, key)
			if err != nil {
				return nil, err
			}
			out = append(out, idName{Id: id, Name: name})
		}
		sortCatalog(out)
		return out, nil
	}

	return nil, &ValidationError{Endpoint: endpoint, Reason: "neither keyed list nor keyed object"}
}

func sortCatalog(items []idName) {
	sort.Slice(items, func(i, j int) bool { return items[i].Id < items[j].Id })
}

// decodeObjectList accepts a plain array of objects or the same array
// wrapped in a single-key envelope object.
func decodeObjectList[T any](endpoint string, raw json.RawMessage) ([]T, error) {
	var direct []T
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped) == 1 {
		for _, inner := range wrapped {
			var out []T
			if err := json.Unmarshal(inner, &out); err == nil {
				return out, nil
			}
		}
	}

	return nil, &ValidationError{Endpoint: endpoint, Reason: "neither object list nor single-key envelope"}
}

// decodeLinks accepts the links endpoint's two shapes: a url->clicks
// object or a plain list of link objects.
func decodeLinks(endpoint string, raw json.RawMessage) ([]Link, error) {
	var asMap map[string]int64
	if err := json.Unmarshal(raw, &asMap); err == nil {
		out := make([]Link, 0, len(asMap))
		for url, clicks := range asMap {
			out = append(out, Link{Url: url, Clicks: clicks})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Url < out[j].Url })
		return out, nil
	}

	var asList []Link
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}

	return nil, &ValidationError{Endpoint: endpoint, Reason: "neither url map nor link list"}
}

// decodeObject accepts a plain object or a single-key envelope around it.
// A lenient decode would swallow an envelope as an all-zero value, every
// field unknown, so the direct decode rejects unknown keys and enveloped
// payloads take the unwrap path.
func decodeObject[T any](endpoint string, raw json.RawMessage) (T, error) {
	var zero T

	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()
	var direct T
	if err := strict.Decode(&direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped) == 1 {
		for _, inner := range wrapped {
			var out T
			if err := json.Unmarshal(inner, &out); err == nil {
				return out, nil
			}
		}
		return zero, &ValidationError{Endpoint: endpoint, Reason: "unrecognized single-key envelope"}
	}

	var loose T
	if err := json.Unmarshal(raw, &loose); err == nil {
		return loose, nil
	}

	return zero, &ValidationError{Endpoint: endpoint, Reason: "not a recognizable object"}
}
