package rules

import (
	"regexp"
	"strconv"

	"github.com/kcloudops/kcloud-monitor/pkg/model"
)

// Placeholders look like {field} or {field:.1f}. Unknown fields are left
// in place rather than erroring so a bad template still produces a usable
// alert message.
var placeholderRe = regexp.MustCompile(`\{([a-z_]+)(?::\.(\d)f)?\}`)

// Render substitutes snapshot fields into an alert message template.
func Render(tmpl string, snap model.ClusterSnapshot) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		field, prec := sub[1], sub[2]

		switch field {
		case "cluster_name":
			return snap.ClusterName
		case "status":
			return string(snap.Status)
		case "template_id":
			return snap.TemplateID
		}

		v, err := FieldValue(snap, field)
		if err != nil {
			return m
		}
		if prec != "" {
			p, _ := strconv.Atoi(prec)
			return strconv.FormatFloat(v, 'f', p, 64)
		}
		// Integer fields render without a fraction.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', 1, 64)
	})
}

// renderOK reports whether every placeholder in the template resolves,
// checked by Rule.Validate at load time.
func renderOK(tmpl string) bool {
	for _, sub := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		field := sub[1]
		if field == "cluster_name" || field == "status" || field == "template_id" {
			continue
		}
		if _, err := FieldValue(model.ClusterSnapshot{}, field); err != nil {
			return false
		}
	}
	return true
}
