package sync

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// FieldDocRow represents a single row in the field mapping documentation.
type FieldDocRow struct {
	SailthruField string // Sailthru var or key name (e.g. "profile_name", "extid")
	IsKey         bool   // Whether the field is a Sailthru identity key rather than a var
	SourcePath    string // Capture source path
	Notes         string // Mapping notes (modifiers, identity handling)
}

// FieldDocumentation contains the field documentation for the configured attributes.
type FieldDocumentation struct {
	IdentityMode IdentityMode
	Rows         []FieldDocRow
}

// GenerateFieldDocumentation generates field documentation from the configured attributes.
// Identity keys come first, followed by vars in configuration order.
func GenerateFieldDocumentation(mode IdentityMode, specs []AttributeSpec) FieldDocumentation {
	doc := FieldDocumentation{
		IdentityMode: mode,
		Rows: []FieldDocRow{
			{SailthruField: string(KeyExtID), IsKey: true, SourcePath: IDAttribute, Notes: identityNote(mode, KeyExtID)},
			{SailthruField: string(KeyEmail), IsKey: true, SourcePath: EmailAttribute, Notes: identityNote(mode, KeyEmail)},
		},
	}
	for _, spec := range specs {
		row := FieldDocRow{
			SailthruField: spec.CampaignVar,
			SourcePath:    spec.CapturePath,
		}
		if spec.Modifier != "" {
			row.Notes = formatModifierNote(spec.Modifier)
		}
		doc.Rows = append(doc.Rows, row)
	}
	return doc
}

func identityNote(mode IdentityMode, key IdentityKey) string {
	switch {
	case mode == ExtIDPrimaryWithMerge && key == KeyExtID:
		return "Upsert key"
	case mode == ExtIDPrimaryWithMerge && key == KeyEmail:
		return "Merged on conflict"
	case key == KeyEmail:
		return "Upsert key when the email exists in Sailthru"
	default:
		return "Upsert key when the email is new to Sailthru"
	}
}

// formatModifierNote formats a modifier into a human-readable note.
func formatModifierNote(modifier string) string {
	switch {
	case modifier == "@countryName":
		return "Uses @countryName modifier"
	case modifier == "@countryCode":
		return "Uses @countryCode modifier"
	case strings.HasPrefix(modifier, "@phone:"):
		arg := strings.TrimPrefix(modifier, "@phone:")
		return fmt.Sprintf("Uses @phone:%s modifier", arg)
	case strings.HasPrefix(modifier, "@contains:"):
		arg := strings.TrimPrefix(modifier, "@contains:")
		return fmt.Sprintf("Uses @contains:%s modifier", arg)
	default:
		// Return the modifier as-is if not recognized
		return fmt.Sprintf("Modifier: %s", modifier)
	}
}

// FormatCSV formats the field documentation as CSV.
func (d FieldDocumentation) FormatCSV() (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{fmt.Sprintf("# Identity mode: %s", d.IdentityMode)}); err != nil {
		return "", err
	}

	headers := []string{"Sailthru Field Name", "Sailthru Key", "Capture Source Path", "Mapping Notes"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}

	for _, row := range d.Rows {
		keyMark := ""
		if row.IsKey {
			keyMark = "✓"
		}
		if err := writer.Write([]string{row.SailthruField, keyMark, row.SourcePath, row.Notes}); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
