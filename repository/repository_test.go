package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	testingutil "github.com/victorycadets/admissions-agent/testing"
	"github.com/victorycadets/admissions-agent/utils"
)

func TestLeadRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewLeadRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		lead, err := fixtures.CreateTestLead(models.LeadStatusNew)
		require.NoError(t, err)

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, lead.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, lead.ID, found.ID)
			assert.Equal(t, []string{"facebook"}, found.Tags)
		})

		t.Run("ByUUIDMalformed", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, "not-a-uuid")
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByPhone", func(t *testing.T) {
			found, err := repo.ByPhone(ctx, lead.PhoneNumber)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, lead.ID, found.ID)

			missing, err := repo.ByPhone(ctx, "+910000000000")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("SaveIfPhoneAbsent", func(t *testing.T) {
			phone := testingutil.RandomPhone()
			first, created, err := repo.SaveIfPhoneAbsent(ctx, &models.Lead{
				FullName:    utils.UnknownCallerName,
				PhoneNumber: phone,
				Source:      models.LeadSourceInboundCall,
				Status:      models.LeadStatusContacted,
			})
			require.NoError(t, err)
			assert.True(t, created)

			second, created, err := repo.SaveIfPhoneAbsent(ctx, &models.Lead{
				FullName:    utils.UnknownCallerName,
				PhoneNumber: phone,
				Source:      models.LeadSourceInboundCall,
				Status:      models.LeadStatusContacted,
			})
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first.ID, second.ID)

			count, err := repo.Count(ctx, models.LeadFilter{PhoneNumber: &phone})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("AppendNote", func(t *testing.T) {
			require.NoError(t, repo.AppendNote(ctx, lead.ID, "first"))
			require.NoError(t, repo.AppendNote(ctx, lead.ID, "second"))
			require.NoError(t, repo.AppendNote(ctx, lead.ID, ""))

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			require.NotNil(t, found.Notes)
			assert.Equal(t, "first\nsecond", *found.Notes)
		})

		t.Run("UpdateStatus", func(t *testing.T) {
			require.NoError(t, repo.UpdateStatus(ctx, lead.ID, models.LeadStatusDemoScheduled))

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStatusDemoScheduled, found.Status)

			err = repo.UpdateStatus(ctx, 9999, models.LeadStatusLost)
			assert.ErrorIs(t, err, repository.ErrLeadNotFound)
		})

		t.Run("TouchLastContacted", func(t *testing.T) {
			at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			require.NoError(t, repo.TouchLastContacted(ctx, lead.ID, at))

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			require.NotNil(t, found.LastContactedAt)
			assert.True(t, at.Equal(found.LastContactedAt.UTC()))
		})

		t.Run("WithTransactionRollback", func(t *testing.T) {
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				if err := repo.AppendNote(txCtx, lead.ID, "rolled back"); err != nil {
					return err
				}
				return assert.AnError
			})
			assert.ErrorIs(t, err, assert.AnError)

			found, err := repo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.NotContains(t, *found.Notes, "rolled back")
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAgentScriptRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAgentScriptRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("EnsureDefaultCreatesOnce", func(t *testing.T) {
			first, err := repo.EnsureDefault(ctx, models.DefaultAgentScript())
			require.NoError(t, err)
			require.NotNil(t, first)
			assert.True(t, first.IsDefault)

			second, err := repo.EnsureDefault(ctx, models.DefaultAgentScript())
			require.NoError(t, err)
			assert.Equal(t, first.ID, second.ID)

			count, err := repo.Count(ctx, models.AgentScriptFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ByUUID", func(t *testing.T) {
			def, err := repo.Default(ctx)
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, def.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, def.Greeting, found.Greeting)
		})

		t.Run("UpdatePartial", func(t *testing.T) {
			def, err := repo.Default(ctx)
			require.NoError(t, err)

			err = repo.Update(ctx, &models.AgentScript{ID: def.ID, Closing: "Can I book Saturday at 10?"})
			require.NoError(t, err)

			found, err := repo.ByID(ctx, def.ID)
			require.NoError(t, err)
			assert.Equal(t, "Can I book Saturday at 10?", found.Closing)
			assert.Equal(t, def.Pitch, found.Pitch)

			err = repo.Update(ctx, &models.AgentScript{ID: 9999, Closing: "x"})
			assert.ErrorIs(t, err, repository.ErrAgentScriptNotFound)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCallRecordRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCallRecordRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		lead, err := fixtures.CreateTestLead(models.LeadStatusContacted)
		require.NoError(t, err)

		t.Run("UpsertStatusIsIdempotent", func(t *testing.T) {
			update := repository.CallStatusUpdate{
				CallSid:         "CA-idempotent",
				LeadID:          &lead.ID,
				Direction:       models.CallDirectionOutbound,
				Disposition:     models.CallDispositionCompleted,
				RecordingURL:    utils.ToPtr("https://api.twilio.com/rec/RE1"),
				DurationSeconds: utils.ToPtr(42),
				At:              time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			}
			require.NoError(t, repo.UpsertStatus(ctx, update))
			once, err := repo.ByCallSid(ctx, "CA-idempotent")
			require.NoError(t, err)

			require.NoError(t, repo.UpsertStatus(ctx, update))
			twice, err := repo.ByCallSid(ctx, "CA-idempotent")
			require.NoError(t, err)

			assert.Equal(t, once.ID, twice.ID)
			assert.Equal(t, once.Disposition, twice.Disposition)
			assert.Equal(t, once.RecordingURL, twice.RecordingURL)
			assert.Equal(t, once.DurationSeconds, twice.DurationSeconds)
			assert.Equal(t, once.LeadID, twice.LeadID)
			require.NotNil(t, twice.EndedAt)
			assert.True(t, once.EndedAt.Equal(*twice.EndedAt))

			count, err := repo.Count(ctx, models.CallRecordFilter{CallSid: utils.ToPtr("CA-idempotent")})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("DispositionIsMonotone", func(t *testing.T) {
			sid := "CA-monotone"
			for _, d := range []models.CallDisposition{
				models.CallDispositionPending,
				models.CallDispositionNoAnswer,
				models.CallDispositionPending,
				models.CallDispositionCompleted,
			} {
				require.NoError(t, repo.UpsertStatus(ctx, repository.CallStatusUpdate{
					CallSid:     sid,
					Direction:   models.CallDirectionOutbound,
					Disposition: d,
				}))
			}

			record, err := repo.ByCallSid(ctx, sid)
			require.NoError(t, err)
			assert.Equal(t, models.CallDispositionNoAnswer, record.Disposition)
			assert.NotNil(t, record.EndedAt)
		})

		t.Run("LateRecordingRefinesFinalRecord", func(t *testing.T) {
			sid := "CA-recording"
			require.NoError(t, repo.UpsertStatus(ctx, repository.CallStatusUpdate{
				CallSid: sid, Disposition: models.CallDispositionCompleted,
			}))
			require.NoError(t, repo.UpsertStatus(ctx, repository.CallStatusUpdate{
				CallSid: sid, Disposition: models.CallDispositionCompleted, RecordingURL: utils.ToPtr("https://rec/1"),
			}))

			record, err := repo.ByCallSid(ctx, sid)
			require.NoError(t, err)
			require.NotNil(t, record.RecordingURL)
			assert.Equal(t, "https://rec/1", *record.RecordingURL)
		})

		t.Run("SavePendingAfterStatusKeepsStatus", func(t *testing.T) {
			sid := "CA-race"
			require.NoError(t, repo.UpsertStatus(ctx, repository.CallStatusUpdate{
				CallSid: sid, Disposition: models.CallDispositionFailed,
			}))
			require.NoError(t, repo.SavePending(ctx, &models.CallRecord{CallSid: sid, LeadID: &lead.ID}))

			record, err := repo.ByCallSid(ctx, sid)
			require.NoError(t, err)
			assert.Equal(t, models.CallDispositionFailed, record.Disposition)
			require.NotNil(t, record.LeadID)
			assert.Equal(t, lead.ID, *record.LeadID)
		})

		t.Run("UpsertOutcomeAppendsNotes", func(t *testing.T) {
			sid := "CA-outcome"
			_, err := fixtures.CreateCallRecord(lead, sid, models.CallDispositionPending)
			require.NoError(t, err)

			require.NoError(t, repo.UpsertOutcome(ctx, repository.CallOutcome{
				CallSid: sid, Transcript: utils.ToPtr("maybe"), Note: "objection raised",
			}))
			require.NoError(t, repo.UpsertOutcome(ctx, repository.CallOutcome{
				CallSid: sid, Transcript: utils.ToPtr("yes"), Note: "demo booked",
			}))

			record, err := repo.ByCallSid(ctx, sid)
			require.NoError(t, err)
			assert.Equal(t, models.CallDispositionPending, record.Disposition)
			assert.Equal(t, "yes", *record.Transcript)
			assert.Equal(t, "objection raised\ndemo booked", *record.OutcomeNotes)
		})

		t.Run("StalePendingSweep", func(t *testing.T) {
			stale := &models.CallRecord{
				CallSid:   "CA-stale",
				StartedAt: time.Now().UTC().Add(-48 * time.Hour),
			}
			require.NoError(t, repo.SavePending(ctx, stale))

			records, err := repo.ListStalePending(ctx, time.Now().UTC().Add(-time.Hour), 10)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, "CA-stale", records[0].CallSid)

			updated, err := repo.MarkFailedIfPending(ctx, records[0].ID, "no status callback received")
			require.NoError(t, err)
			assert.True(t, updated)

			updated, err = repo.MarkFailedIfPending(ctx, records[0].ID, "no status callback received")
			require.NoError(t, err)
			assert.False(t, updated)

			record, err := repo.ByCallSid(ctx, "CA-stale")
			require.NoError(t, err)
			assert.Equal(t, models.CallDispositionFailed, record.Disposition)
			assert.Equal(t, "no status callback received", *record.OutcomeNotes)
		})

		return nil
	})
	require.NoError(t, err)
}
