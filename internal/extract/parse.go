package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// CleanResponse strips markdown code fences and surrounding chatter from a
// service response, leaving the JSON payload.
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.LastIndex(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, "]")
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	}
	if end > start {
		return s[start : end+1]
	}
	return s
}

// ParseRecords decodes a service response into candidate records. A bare
// object decodes as a one-record list, a valid empty array as no records.
// Array elements that are not objects are dropped.
func ParseRecords(raw string) ([]model.CandidateRecord, error) {
	cleaned := CleanResponse(raw)
	if cleaned == "" {
		return nil, eris.New("extract: empty response")
	}

	if strings.HasPrefix(cleaned, "{") {
		var one model.CandidateRecord
		if err := json.Unmarshal([]byte(cleaned), &one); err != nil {
			return nil, eris.Wrap(err, "extract: decode object")
		}
		return []model.CandidateRecord{one}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &elems); err != nil {
		return nil, eris.Wrap(err, "extract: decode array")
	}

	records := make([]model.CandidateRecord, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			continue
		}
		var rec model.CandidateRecord
		if err := json.Unmarshal(e, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
