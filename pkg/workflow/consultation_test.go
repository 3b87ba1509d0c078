package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
)

func newConsultation(t *testing.T, e *Engine) *model.Consultation {
	t.Helper()
	c := &model.Consultation{
		Subject:     "Pension contribution after transfer",
		Description: "Which unit carries my contributions during a mid-year transfer?",
		Category:    "benefits",
		Priority:    model.PriorityMedium,
	}
	require.NoError(t, e.CreateConsultation(context.Background(), submitter, c))
	return c
}

func TestCreateConsultation(t *testing.T) {
	e, _ := newTestEngine(t)
	c := newConsultation(t, e)

	assert.Equal(t, model.ConsultationSubmitted, c.Status)
	assert.False(t, c.IsEscalated)
	assert.Equal(t, submitter.UnitID, c.UnitID)

	entries, err := e.History(context.Background(), model.HistoryItemConsultation, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "submit", entries[0].Action)
}

func TestFirstReviewerTouchMovesUnderReview(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	_, err := e.AppendMessage(ctx, unitReviewer, c.ID, "Could you name the receiving unit?", model.MessageQuestion)
	require.NoError(t, err)

	fresh, err := e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationUnderReview, fresh.Status)
	assert.Zero(t, fresh.CurrentHandlerID)
}

func TestAnswerSetsRespondedAndHandler(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	msg, err := e.AppendMessage(ctx, unitReviewer, c.ID, "Contributions follow the receiving unit.", model.MessageAnswer)
	require.NoError(t, err)
	assert.Equal(t, model.MessageAnswer, msg.MessageType)
	assert.False(t, msg.FromCentral)

	fresh, err := e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationResponded, fresh.Status)
	assert.Equal(t, unitReviewer.ID, fresh.CurrentHandlerID)
}

func TestFollowUpLoop(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	_, err := e.AppendMessage(ctx, unitReviewer, c.ID, "Contributions follow the receiving unit.", model.MessageAnswer)
	require.NoError(t, err)

	// The submitter follows up, re-opening the loop.
	_, err = e.AppendMessage(ctx, submitter, c.ID, "Does that include the housing fund?", model.MessageQuestion)
	require.NoError(t, err)
	fresh, err := e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationFollowUpRequested, fresh.Status)

	// The next answer closes the loop back to responded.
	_, err = e.AppendMessage(ctx, unitReviewer, c.ID, "Yes, the housing fund too.", model.MessageAnswer)
	require.NoError(t, err)
	fresh, err = e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationResponded, fresh.Status)
}

func TestEscalationHandOff(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	// Central reviewers own nothing before escalation.
	_, err := e.AppendMessage(ctx, central, c.ID, "I can take this.", model.MessageAnswer)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// Only a unit reviewer of the owning unit may escalate.
	_, err = e.Escalate(ctx, foreignUnit, c.ID, "")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = e.Escalate(ctx, submitter, c.ID, "")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	got, err := e.Escalate(ctx, unitReviewer, c.ID, "needs central policy ruling")
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationEscalated, got.Status)
	assert.True(t, got.IsEscalated)

	// Escalation is one-way and one-time.
	_, err = e.Escalate(ctx, unitReviewer, c.ID, "")
	assert.Equal(t, KindInvalidTransition, KindOf(err))

	// The unit reviewer lost every write path.
	_, err = e.AppendMessage(ctx, unitReviewer, c.ID, "My two cents.", model.MessageAnswer)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = e.Resolve(ctx, unitReviewer, c.ID, "")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// The central reviewer answers and becomes the handler.
	_, err = e.AppendMessage(ctx, central, c.ID, "Policy 12.4 applies.", model.MessageAnswer)
	require.NoError(t, err)
	fresh, err := e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationEscalatedResponded, fresh.Status)
	assert.Equal(t, central.ID, fresh.CurrentHandlerID)

	// Follow-up loop also works on the escalated branch.
	_, err = e.AppendMessage(ctx, submitter, c.ID, "And for part-time staff?", model.MessageQuestion)
	require.NoError(t, err)
	fresh, err = e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationFollowUpRequested, fresh.Status)

	got, err = e.Resolve(ctx, central, c.ID, "answered in thread")
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestEscalatedFlagIsMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	_, err := e.Escalate(ctx, unitReviewer, c.ID, "")
	require.NoError(t, err)

	// No engine path ever writes is_escalated back to false; resolve and
	// re-read to make sure the flag survives the terminal transition.
	_, err = e.Resolve(ctx, central, c.ID, "")
	require.NoError(t, err)
	fresh, err := e.loadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsEscalated)
}

func TestClosedConsultationRejectsAllWrites(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	_, err := e.Resolve(ctx, unitReviewer, c.ID, "resolved without thread")
	require.NoError(t, err)

	_, err = e.AppendMessage(ctx, submitter, c.ID, "One more thing...", model.MessageQuestion)
	assert.Equal(t, KindConsultationClosed, KindOf(err))
	_, err = e.AppendMessage(ctx, unitReviewer, c.ID, "Also this.", model.MessageAnswer)
	assert.Equal(t, KindConsultationClosed, KindOf(err))
	_, err = e.Escalate(ctx, unitReviewer, c.ID, "")
	assert.Equal(t, KindConsultationClosed, KindOf(err))
	_, err = e.Resolve(ctx, unitReviewer, c.ID, "")
	assert.Equal(t, KindConsultationClosed, KindOf(err))
	_, err = e.Close(ctx, admin, c.ID, "tidy up")
	assert.Equal(t, KindConsultationClosed, KindOf(err))
}

func TestAdministrativeClose(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	_, err := e.Close(ctx, unitReviewer, c.ID, "not mine to close")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = e.Close(ctx, admin, c.ID, "")
	assert.Equal(t, KindValidation, KindOf(err))

	got, err := e.Close(ctx, admin, c.ID, "duplicate of consultation 12")
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationClosed, got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestMessageEventsReachFeedInAppendOrder(t *testing.T) {
	e, feed := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	events, cancel := feed.Subscribe(c.ID)
	defer cancel()

	first, err := e.AppendMessage(ctx, unitReviewer, c.ID, "first", model.MessageAnswer)
	require.NoError(t, err)
	second, err := e.AppendMessage(ctx, submitter, c.ID, "second", model.MessageQuestion)
	require.NoError(t, err)

	ev1 := <-events
	ev2 := <-events
	assert.Equal(t, first.ID, ev1.MessageID)
	assert.Equal(t, second.ID, ev2.MessageID)
	assert.Equal(t, changefeed.EventMessage, ev1.Kind)
	assert.Equal(t, string(model.ConsultationFollowUpRequested), ev2.Status)
}

func TestHistoryNewestFirst(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	c := newConsultation(t, e)

	_, err := e.AppendMessage(ctx, unitReviewer, c.ID, "answer", model.MessageAnswer)
	require.NoError(t, err)
	_, err = e.Resolve(ctx, unitReviewer, c.ID, "")
	require.NoError(t, err)

	entries, err := e.History(ctx, model.HistoryItemConsultation, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "resolve", entries[0].Action)
	assert.Equal(t, "answer", entries[1].Action)
	assert.Equal(t, "submit", entries[2].Action)
}
