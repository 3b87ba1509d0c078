package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oa-lab/hrdesk/dao/model"
)

func TestSubmitRequestWritesLedger(t *testing.T) {
	e, _ := newTestEngine(t)
	req := submitRequest(t, e, model.RequestTypePromotion, "appraisal", "service-record")

	assert.Equal(t, model.RequestStatusSubmitted, req.Status)
	assert.Equal(t, submitter.ID, req.SubmitterID)
	assert.Equal(t, submitter.UnitID, req.UnitID)
	assert.NotEmpty(t, req.RefCode)

	entries := requestHistory(t, e, req.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "submit", entries[0].Action)
	assert.Equal(t, submitter.ID, entries[0].ActorID)

	slots := slotsOf(t, e, req.ID)
	require.Len(t, slots, 2)
	assert.Equal(t, 0, slots[0].Position)
	assert.Equal(t, model.VerificationPending, slots[0].VerificationStatus)
}

func TestTransitionTableRejectsUnknownEdges(t *testing.T) {
	all := []model.RequestStatus{
		model.RequestStatusSubmitted,
		model.RequestStatusUnderReviewUnit,
		model.RequestStatusReturnedToUser,
		model.RequestStatusApprovedByUnit,
		model.RequestStatusUnderReviewCentral,
		model.RequestStatusApprovedFinal,
		model.RequestStatusRejected,
	}
	actions := []RequestAction{
		ActionOpenReview, ActionApproveByUnit, ActionReturnToUser,
		ActionResubmit, ActionTakeCentral, ActionApproveFinal, ActionReturnToUnit,
	}
	for _, from := range all {
		for _, action := range actions {
			to, err := requestTarget(from, action)
			if expected, ok := requestEdges[from][action]; ok {
				require.NoError(t, err)
				assert.Equal(t, expected, to)
			} else {
				assert.Equal(t, KindInvalidTransition, KindOf(err),
					"state %s must not allow %s", from, action)
			}
		}
	}

	// Reject leaves from every non-terminal state and only from those.
	for _, from := range all {
		_, err := requestTarget(from, ActionReject)
		if from.IsTerminal() {
			assert.Equal(t, KindInvalidTransition, KindOf(err))
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestLeaveRequestWithoutDocumentsIsImmediatelyApprovable(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypeLeave)

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	got, err := e.ApproveByUnit(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApprovedByUnit, got.Status)
}

func TestApproveByUnitNamesOutstandingSlots(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypePromotion, "appraisal", "service-record", "training-cert")

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)

	_, err = e.ApproveByUnit(ctx, unitReviewer, req.ID)
	require.Equal(t, KindPreconditionFailed, KindOf(err))
	assert.Contains(t, err.Error(), "appraisal")
	assert.Contains(t, err.Error(), "service-record")
	assert.Contains(t, err.Error(), "training-cert")

	// A failed attempt leaves no ledger trace.
	entries := requestHistory(t, e, req.ID)
	assert.Len(t, entries, 2) // submit + open_review
}

func TestUnprovidedSlotsDoNotBlockApproval(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	req := &model.ServiceRequest{Type: model.RequestTypeTransfer}
	docs := []model.DocumentSlot{
		{Name: "service-record", URL: "https://files.example.com/sr"},
		{Name: "receiving-consent"}, // never provided
	}
	require.NoError(t, e.SubmitRequest(ctx, submitter, req, docs))

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)

	slots := slotsOf(t, e, req.ID)
	_, err = e.SetDocumentStatus(ctx, unitReviewer, req.ID, slots[0].ID, model.VerificationVerified, "", false)
	require.NoError(t, err)

	got, err := e.ApproveByUnit(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApprovedByUnit, got.Status)
}

func TestRequestRoleGates(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypeLeave)

	// The submitter cannot open their own review.
	_, err := e.OpenReview(ctx, submitter, req.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// A reviewer of another unit cannot touch the request.
	_, err = e.OpenReview(ctx, foreignUnit, req.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	// A central reviewer is not a unit reviewer.
	_, err = e.OpenReview(ctx, central, req.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	_, err = e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)

	// Unit reviewers cannot act on central edges.
	_, err = e.ApproveByUnit(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	_, err = e.TakeCentral(ctx, unitReviewer, req.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestReturnToUserRequiresNoteAndFlagsSlots(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypePromotion, "appraisal", "service-record")

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)

	_, err = e.ReturnToUser(ctx, unitReviewer, req.ID, "", nil)
	assert.Equal(t, KindValidation, KindOf(err))

	slots := slotsOf(t, e, req.ID)
	got, err := e.ReturnToUser(ctx, unitReviewer, req.ID, "appraisal is outdated", []uint{slots[0].ID})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusReturnedToUser, got.Status)

	slots = slotsOf(t, e, req.ID)
	assert.Equal(t, model.VerificationNeedsFix, slots[0].VerificationStatus)
	assert.Equal(t, "appraisal is outdated", slots[0].VerificationNote)
	assert.Equal(t, model.VerificationPending, slots[1].VerificationStatus)
}

func TestResubmitOnlyBySubmitter(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypeLeave)

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	_, err = e.ReturnToUser(ctx, unitReviewer, req.ID, "please add dates", nil)
	require.NoError(t, err)

	_, err = e.Resubmit(ctx, unitReviewer, req.ID)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	got, err := e.Resubmit(ctx, submitter, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusSubmitted, got.Status)
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypeLeave)

	mustTransition := func(fn func() (*model.ServiceRequest, error)) {
		t.Helper()
		_, err := fn()
		require.NoError(t, err)
	}
	mustTransition(func() (*model.ServiceRequest, error) { return e.OpenReview(ctx, unitReviewer, req.ID) })
	mustTransition(func() (*model.ServiceRequest, error) { return e.ApproveByUnit(ctx, unitReviewer, req.ID) })
	mustTransition(func() (*model.ServiceRequest, error) { return e.TakeCentral(ctx, central, req.ID) })

	got, err := e.ApproveFinal(ctx, central, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApprovedFinal, got.Status)
	require.NotNil(t, got.ApprovedAt)

	// approved_final absorbs everything, including rejection.
	_, err = e.Reject(ctx, central, req.ID, "changed my mind")
	assert.Equal(t, KindInvalidTransition, KindOf(err))
	_, err = e.OpenReview(ctx, unitReviewer, req.ID)
	assert.Equal(t, KindInvalidTransition, KindOf(err))

	// Same for rejected.
	other := submitRequest(t, e, model.RequestTypeLeave)
	_, err = e.Reject(ctx, unitReviewer, other.ID, "duplicate request")
	require.NoError(t, err)
	_, err = e.OpenReview(ctx, unitReviewer, other.ID)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
	_, err = e.Reject(ctx, central, other.ID, "again")
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestRejectRequiresNote(t *testing.T) {
	e, _ := newTestEngine(t)
	req := submitRequest(t, e, model.RequestTypeLeave)
	_, err := e.Reject(context.Background(), unitReviewer, req.ID, "")
	assert.Equal(t, KindValidation, KindOf(err))
}

// TestRoundTrip walks the full loop: submit with documents, verify,
// approve by unit, return from central with one slot flagged, fix,
// re-approve, final approval. No state is skipped and every transition
// leaves exactly one ledger entry.
func TestRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypePromotion, "appraisal", "service-record")

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)

	for _, slot := range slotsOf(t, e, req.ID) {
		_, err := e.SetDocumentStatus(ctx, unitReviewer, req.ID, slot.ID, model.VerificationVerified, "", false)
		require.NoError(t, err)
	}
	_, err = e.ApproveByUnit(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	_, err = e.TakeCentral(ctx, central, req.ID)
	require.NoError(t, err)

	// Central review bounces it back over one document.
	_, err = e.ReturnToUnit(ctx, central, req.ID, "appraisal signature missing")
	require.NoError(t, err)
	slots := slotsOf(t, e, req.ID)
	_, err = e.SetDocumentStatus(ctx, unitReviewer, req.ID, slots[0].ID, model.VerificationNeedsFix, "signature missing", false)
	require.NoError(t, err)
	_, err = e.ReturnToUser(ctx, unitReviewer, req.ID, "fix the appraisal", nil)
	require.NoError(t, err)

	// Submitter replaces the evidence and resubmits.
	_, err = e.ProvideDocument(ctx, submitter, req.ID, slots[0].ID, "https://files.example.com/appraisal-v2")
	require.NoError(t, err)
	_, err = e.Resubmit(ctx, submitter, req.ID)
	require.NoError(t, err)

	// Second pass goes through.
	_, err = e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	_, err = e.SetDocumentStatus(ctx, unitReviewer, req.ID, slots[0].ID, model.VerificationVerified, "", false)
	require.NoError(t, err)
	_, err = e.ApproveByUnit(ctx, unitReviewer, req.ID)
	require.NoError(t, err)
	_, err = e.TakeCentral(ctx, central, req.ID)
	require.NoError(t, err)
	got, err := e.ApproveFinal(ctx, central, req.ID)
	require.NoError(t, err)

	assert.Equal(t, model.RequestStatusApprovedFinal, got.Status)
	entries := requestHistory(t, e, req.ID)
	assert.GreaterOrEqual(t, len(entries), 5)

	// The ledger-derived status walk must match the graph.
	walk := []string{}
	for i := len(entries) - 1; i >= 0; i-- {
		walk = append(walk, entries[i].Action)
	}
	assert.Equal(t, "submit", walk[0])
	assert.Equal(t, "approve_final", walk[len(walk)-1])
}

func TestConcurrentTransitionsExactlyOneWins(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypeLeave)

	_, err := e.OpenReview(ctx, unitReviewer, req.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.ApproveByUnit(ctx, unitReviewer, req.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		// The loser either raced the guarded update (StaleState) or read
		// the already-advanced row (InvalidTransition).
		kind := KindOf(err)
		assert.Contains(t, []Kind{KindStaleState, KindInvalidTransition}, kind)
	}
	assert.Equal(t, 1, winners)

	// Exactly one approve_by_unit entry in the ledger.
	approvals := 0
	for _, entry := range requestHistory(t, e, req.ID) {
		if entry.Action == string(ActionApproveByUnit) {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)
}

func TestDocumentTrackerRules(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	req := submitRequest(t, e, model.RequestTypePromotion, "appraisal")
	slot := slotsOf(t, e, req.ID)[0]

	// needs_fix without a note is invalid.
	_, err := e.SetDocumentStatus(ctx, unitReviewer, req.ID, slot.ID, model.VerificationNeedsFix, "", false)
	assert.Equal(t, KindValidation, KindOf(err))

	// Submitters cannot verify their own evidence.
	_, err = e.SetDocumentStatus(ctx, submitter, req.ID, slot.ID, model.VerificationVerified, "", false)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	got, err := e.SetDocumentStatus(ctx, unitReviewer, req.ID, slot.ID, model.VerificationNeedsFix, "blurry scan", false)
	require.NoError(t, err)
	assert.Equal(t, "blurry scan", got.VerificationNote)

	// Verifying clears the note by default.
	got, err = e.SetDocumentStatus(ctx, unitReviewer, req.ID, slot.ID, model.VerificationVerified, "", false)
	require.NoError(t, err)
	assert.Empty(t, got.VerificationNote)

	// Tracker is frozen once the request is terminal.
	_, err = e.Reject(ctx, unitReviewer, req.ID, "withdrawn by submitter")
	require.NoError(t, err)
	_, err = e.SetDocumentStatus(ctx, unitReviewer, req.ID, slot.ID, model.VerificationPending, "", false)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}
