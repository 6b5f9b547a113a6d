package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

// RunLog appends one page per pipeline run to a Notion database, so a team
// can watch extraction history without shell access to the machine that ran
// it.
type RunLog struct {
	client Client
	dbID   string
}

// NewRunLog creates a run log writing to the given database.
func NewRunLog(client Client, databaseID string) *RunLog {
	return &RunLog{client: client, dbID: databaseID}
}

// Record creates the page for one run and returns its page ID.
func (l *RunLog) Record(ctx context.Context, run model.Run) (string, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(l.dbID),
		},
		Properties: buildRunProperties(run),
	}
	page, err := l.client.CreatePage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("notion: record run %s", run.ID))
	}
	return string(page.ID), nil
}

// statusName maps run states onto the Status options of the run database.
func statusName(state model.RunState) string {
	switch state {
	case model.RunStateCompleted:
		return "Completed"
	case model.RunStateFailed:
		return "Failed"
	default:
		return "Running"
	}
}

// buildRunProperties converts a run record to Notion page properties. The run
// ID becomes the page title.
func buildRunProperties(run model.Run) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: run.ID}},
			},
		},
		"Source": notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: run.Source}},
			},
		},
		"Status": notionapi.StatusProperty{
			Status: notionapi.Status{
				Name: statusName(run.State),
			},
		},
		"Units Processed": notionapi.NumberProperty{
			Number: float64(run.UnitsProcessed),
		},
		"Units Skipped": notionapi.NumberProperty{
			Number: float64(run.UnitsSkipped),
		},
		"Cases": notionapi.NumberProperty{
			Number: float64(run.CaseCount),
		},
		"Duplicates": notionapi.NumberProperty{
			Number: float64(run.DuplicateCount),
		},
		"Errors": notionapi.NumberProperty{
			Number: float64(run.ErrorCount),
		},
	}

	started := notionapi.Date(run.StartedAt)
	props["Started"] = notionapi.DateProperty{
		Date: &notionapi.DateObject{
			Start: &started,
		},
	}
	if run.CompletedAt != nil {
		completed := notionapi.Date(*run.CompletedAt)
		props["Completed"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &completed,
			},
		}
	}

	return props
}
