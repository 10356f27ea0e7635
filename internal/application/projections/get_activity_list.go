package projections

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"signup/internal/application/view"
	domainActivity "signup/internal/domain/activity"
)

// Fixed page copy for the activity list.
const (
	SelectPlaceholder     = "-- Select an activity --"
	NoParticipantsText    = "No participants yet"
	ParticipantsHeading   = "Participants:"
	RemoveControlLabel    = "❌"
	ActivitiesFailureText = "Failed to load activities. Please try again later."
)

// ActivityListSource fetches the activity collection.
type ActivityListSource interface {
	ListActivities(ctx context.Context) (domainActivity.Collection, error)
}

// GetActivityListDeps holds dependencies for GetActivityList.
type GetActivityListDeps struct {
	Source ActivityListSource
}

// RemovalControl identifies one participant removal button in a rendered list.
type RemovalControl struct {
	ID       string
	Activity string
	Email    string
}

// ActivityListView is the rendered activities region plus the selector options.
type ActivityListView struct {
	List     *view.Node
	Options  []view.Option
	Removals []RemovalControl
	Failed   bool
}

// IDGenerator produces unique control IDs.
type IDGenerator func() string

// NewControlID creates a random control ID.
func NewControlID() string {
	return uuid.New().String()
}

// QueryGetActivityList fetches the full collection.
// The caller builds the view after the fetch so that privilege is read at render time.
// PRE: deps.Source is non-nil
// POST: Returns the collection in server order, or a logged error
func QueryGetActivityList(ctx context.Context, deps GetActivityListDeps) (domainActivity.Collection, error) {
	coll, err := deps.Source.ListActivities(ctx)
	if err != nil {
		slog.Error("activities_fetch_failed", "error", err)
		return domainActivity.Collection{}, fmt.Errorf("fetch activities: %w", err)
	}
	return coll, nil
}

// BuildActivityList renders the collection into display cards and selector options.
// Removal controls are emitted only when privileged.
// PRE: newID is non-nil
// POST: One card and one option per activity, in collection order; the placeholder option is first
func BuildActivityList(coll domainActivity.Collection, privileged bool, newID IDGenerator) ActivityListView {
	out := ActivityListView{
		List:    view.El(view.TagDiv, "activities-list"),
		Options: []view.Option{{Value: "", Label: SelectPlaceholder}},
	}

	for _, a := range coll.Activities {
		participants := buildParticipants(a, privileged, newID, &out.Removals)

		card := view.El(view.TagDiv, "activity-card",
			view.WithText(view.TagH4, "", a.Name),
			view.El(view.TagP, "activity-description", view.TextNode(a.Description)),
			view.El(view.TagP, "",
				view.WithText(view.TagStrong, "", "Schedule:"),
				view.TextNode(" "+a.Schedule),
			),
			view.El(view.TagP, "activity-availability",
				view.WithText(view.TagStrong, "", "Availability:"),
				view.TextNode(fmt.Sprintf(" %d spots left", a.SpotsLeft())),
			),
			view.El(view.TagDiv, "participants-container", participants),
		)
		out.List.Children = append(out.List.Children, card)
		out.Options = append(out.Options, view.Option{Value: a.Name, Label: a.Name})
	}
	return out
}

func buildParticipants(a domainActivity.Activity, privileged bool, newID IDGenerator, removals *[]RemovalControl) *view.Node {
	if !a.HasParticipants() {
		return view.El(view.TagP, "", view.WithText(view.TagEm, "", NoParticipantsText))
	}

	list := view.El(view.TagUL, "participants-list")
	for _, email := range a.Participants {
		item := view.El(view.TagLI, "", view.WithText(view.TagSpan, "participant-email", email))
		if privileged {
			id := newID()
			item.Children = append(item.Children, &view.Node{
				Tag:     view.TagButton,
				Class:   "delete-btn",
				Text:    RemoveControlLabel,
				Control: id,
				Data: []view.Attr{
					{Name: "activity", Value: a.Name},
					{Name: "email", Value: email},
				},
			})
			*removals = append(*removals, RemovalControl{ID: id, Activity: a.Name, Email: email})
		}
		list.Children = append(list.Children, item)
	}
	return view.El(view.TagDiv, "participants-section",
		view.WithText(view.TagH5, "", ParticipantsHeading),
		list,
	)
}

// FailedActivityList is the static notice that replaces the list on fetch failure.
// Options are nil so the caller keeps the previous selector contents.
func FailedActivityList() ActivityListView {
	return ActivityListView{
		List:   view.El(view.TagDiv, "activities-list", view.WithText(view.TagP, "", ActivitiesFailureText)),
		Failed: true,
	}
}
