package advisory

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
)

var fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Parse decodes the service's reply. The reply may be bare JSON, JSON inside a
// fenced code block, or JSON surrounded by prose.
func Parse(content string) (Response, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Response{}, errors.New(errors.ErrCodeAdvisoryParseFailed, "advisory response is empty")
	}

	var firstErr error

	for _, candidate := range candidates(content) {
		var resp Response
		err := json.Unmarshal([]byte(candidate), &resp)
		if err == nil {
			if resp.Recommendations == nil {
				return Response{}, errors.New(errors.ErrCodeInvalidAdvisoryResponse, "advisory response has no recommendations field")
			}

			return resp, nil
		}

		if firstErr == nil {
			firstErr = err
		}
	}

	return Response{}, errors.Wrap(errors.ErrCodeAdvisoryParseFailed, "no JSON object found in advisory response", firstErr)
}

func candidates(content string) []string {
	out := []string{content}

	for _, match := range fencedJSON.FindAllStringSubmatch(content, -1) {
		out = append(out, match[1])
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		out = append(out, content[start:end+1])
	}

	return out
}
