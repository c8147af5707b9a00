package annotations

import (
	"strings"

	"github.com/kolsys/allure-phpunit/allure"
)

// TestMeta is the report metadata derived from a test's annotations.
type TestMeta struct {
	// Labels are the mapped labels in annotation order.
	Labels []allure.Label
	// Title overrides the case display name when non-empty.
	Title string
	// Description is the case description when non-empty.
	Description string
}

// MapToMeta maps filtered annotations to report metadata. Class
// annotations come first so method-level title and description win.
// Unknown annotation names are skipped; they are not errors.
func MapToMeta(anns []Annotation) TestMeta {
	var meta TestMeta
	severitySeen := false

	for _, a := range anns {
		switch strings.ToLower(a.Name) {
		case "severity":
			meta.Labels = append(meta.Labels, allure.Label{
				Name:  allure.LabelSeverity,
				Value: string(allure.NormalizeSeverity(firstValue(a))),
			})
			severitySeen = true
		case "story", "stories":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelStory, a.Values)
		case "feature", "features":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelFeature, a.Values)
		case "issue", "issues":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelIssue, a.Values)
		case "testid", "id":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelTestID, a.Values)
		case "title":
			if v := firstValue(a); v != "" {
				meta.Title = v
			}
		case "description":
			if v := firstValue(a); v != "" {
				meta.Description = v
			}
		}
	}

	if !severitySeen {
		meta.Labels = append(meta.Labels, allure.Label{
			Name:  allure.LabelSeverity,
			Value: string(allure.DefaultSeverity),
		})
	}

	return meta
}

// MapToSuiteMeta maps class annotations to suite metadata. Suites carry
// story, feature, and issue labels plus title and description; severity
// and test IDs are case-level metadata and are not mapped here.
func MapToSuiteMeta(anns []Annotation) TestMeta {
	var meta TestMeta

	for _, a := range anns {
		switch strings.ToLower(a.Name) {
		case "story", "stories":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelStory, a.Values)
		case "feature", "features":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelFeature, a.Values)
		case "issue", "issues":
			meta.Labels = appendValueLabels(meta.Labels, allure.LabelIssue, a.Values)
		case "title":
			if v := firstValue(a); v != "" {
				meta.Title = v
			}
		case "description":
			if v := firstValue(a); v != "" {
				meta.Description = v
			}
		}
	}

	return meta
}

func firstValue(a Annotation) string {
	if len(a.Values) == 0 {
		return ""
	}
	return strings.TrimSpace(a.Values[0])
}

func appendValueLabels(labels []allure.Label, name string, values []string) []allure.Label {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		labels = append(labels, allure.Label{Name: name, Value: v})
	}
	return labels
}
