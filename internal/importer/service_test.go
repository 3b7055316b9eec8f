package importer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mlane/campaignlens/internal/domain"
	"github.com/mlane/campaignlens/internal/storage"
)

var campaignCSV = []byte("campaign_name,utm_source,clicks,registrations\nLaunch,google,100,10\n")

func uploadAndConfirm(t *testing.T, service *Service, user domain.User, payload []byte) *ConfirmResult {
	t.Helper()
	ctx := context.Background()

	upload, err := service.Upload(ctx, user, "report.csv", int64(len(payload)), payload)
	require.NoError(t, err)
	require.Equal(t, domain.ImportStatusMappingRequired, upload.Status)

	confirm, err := service.Confirm(ctx, user, upload.ImportID, upload.SuggestedMappings)
	require.NoError(t, err)
	return confirm
}

func TestUploadSuggestsMappings(t *testing.T) {
	service := NewService(storage.NewMemoryStorage())
	user := domain.User{ID: uuid.New()}

	result, err := service.Upload(context.Background(), user, "report.csv", int64(len(campaignCSV)), campaignCSV)
	require.NoError(t, err)

	require.Equal(t, []string{"campaign_name", "utm_source", "clicks", "registrations"}, result.Columns)
	require.Len(t, result.SuggestedMappings, 4)
	for _, mapping := range result.SuggestedMappings {
		require.Equal(t, 95, mapping.Confidence, "header %q should hit a known pattern", mapping.SourceColumn)
	}
	require.Len(t, result.PreviewRows, 1)
}

func TestConfirmReconcilesCampaignAndMetrics(t *testing.T) {
	store := storage.NewMemoryStorage()
	service := NewService(store)
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	confirm := uploadAndConfirm(t, service, user, campaignCSV)
	require.Equal(t, domain.ImportStatusCompleted, confirm.Status)
	require.Equal(t, 1, confirm.ValidRows)
	require.Equal(t, 0, confirm.ErrorRows)

	campaigns, err := store.GetCampaigns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)

	campaign := campaigns[0]
	require.Equal(t, "Launch", campaign.Name)
	require.Equal(t, domain.ChannelGoogle, campaign.Channel)
	require.Equal(t, 100, campaign.Clicks)
	require.Equal(t, 10, campaign.Registrations)

	metrics, err := store.GetCampaignMetrics(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 2)
}

func TestConfirmTwiceAccumulatesTotals(t *testing.T) {
	store := storage.NewMemoryStorage()
	service := NewService(store)
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	uploadAndConfirm(t, service, user, campaignCSV)
	uploadAndConfirm(t, service, user, campaignCSV)

	campaigns, err := store.GetCampaigns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1, "same (name, channel) must reuse one campaign")
	require.Equal(t, 200, campaigns[0].Clicks)
	require.Equal(t, 20, campaigns[0].Registrations)
}

func TestConfirmRejectsSecondConfirm(t *testing.T) {
	service := NewService(storage.NewMemoryStorage())
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	upload, err := service.Upload(ctx, user, "report.csv", int64(len(campaignCSV)), campaignCSV)
	require.NoError(t, err)

	_, err = service.Confirm(ctx, user, upload.ImportID, upload.SuggestedMappings)
	require.NoError(t, err)

	_, err = service.Confirm(ctx, user, upload.ImportID, upload.SuggestedMappings)
	require.ErrorIs(t, err, ErrImportAlreadyProcessed)
}

func TestConfirmEnforcesOwnership(t *testing.T) {
	service := NewService(storage.NewMemoryStorage())
	owner := domain.User{ID: uuid.New()}
	intruder := domain.User{ID: uuid.New()}
	ctx := context.Background()

	upload, err := service.Upload(ctx, owner, "report.csv", int64(len(campaignCSV)), campaignCSV)
	require.NoError(t, err)

	_, err = service.Confirm(ctx, intruder, upload.ImportID, upload.SuggestedMappings)
	require.ErrorIs(t, err, ErrImportNotFound)
}

func TestConfirmRequiresMappings(t *testing.T) {
	service := NewService(storage.NewMemoryStorage())
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	upload, err := service.Upload(ctx, user, "report.csv", int64(len(campaignCSV)), campaignCSV)
	require.NoError(t, err)

	_, err = service.Confirm(ctx, user, upload.ImportID, nil)
	require.ErrorIs(t, err, ErrMappingsRequired)

	_, err = service.Confirm(ctx, user, upload.ImportID, []domain.ColumnMapping{
		{SourceColumn: "clicks", TargetField: domain.TargetField("bogus")},
	})
	require.ErrorIs(t, err, ErrMappingsRequired)
}

func TestConfirmWithInvalidRowsStillReconcilesValidOnes(t *testing.T) {
	store := storage.NewMemoryStorage()
	service := NewService(store)
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	payload := []byte("campaign_name,utm_source,clicks\nLaunch,google,100\nBroken,google,-3\n")
	upload, err := service.Upload(ctx, user, "report.csv", int64(len(payload)), payload)
	require.NoError(t, err)

	confirm, err := service.Confirm(ctx, user, upload.ImportID, upload.SuggestedMappings)
	require.NoError(t, err)
	require.Equal(t, domain.ImportStatusFailed, confirm.Status)
	require.Equal(t, 1, confirm.ValidRows)
	require.Equal(t, 1, confirm.ErrorRows)

	campaigns, err := store.GetCampaigns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, "Launch", campaigns[0].Name)

	record, err := service.Import(ctx, user, upload.ImportID)
	require.NoError(t, err)
	require.NotNil(t, record.ErrorSummary)
	require.Equal(t, "1 rows had validation errors", *record.ErrorSummary)
}

func TestConfirmFoldsAttendeesIntoRegistrations(t *testing.T) {
	store := storage.NewMemoryStorage()
	service := NewService(store)
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	payload := []byte("campaign_name,utm_source,attendees\nWebinar Q3,linkedin,5\n")
	confirm := uploadAndConfirm(t, service, user, payload)
	require.Equal(t, domain.ImportStatusCompleted, confirm.Status)

	campaigns, err := store.GetCampaigns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, 5, campaigns[0].Attendees)

	metrics, err := store.GetCampaignMetrics(ctx, campaigns[0].ID)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	require.Equal(t, domain.MetricTypeRegistrations, metrics[0].MetricType)
	require.Equal(t, float64(5), metrics[0].Value)
}

func TestConfirmFallsBackToConversions(t *testing.T) {
	store := storage.NewMemoryStorage()
	service := NewService(store)
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	payload := []byte("campaign_name,utm_source,conversions\nLaunch,google,7\n")
	uploadAndConfirm(t, service, user, payload)

	campaigns, err := store.GetCampaigns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, 7, campaigns[0].Registrations)
}

func TestConfirmCreatesEvents(t *testing.T) {
	store := storage.NewMemoryStorage()
	service := NewService(store)
	user := domain.User{ID: uuid.New()}
	ctx := context.Background()

	payload := []byte("event_name,event_date,attendee_name\nProduct Demo,2024-03-01,Alice\nProduct Demo,2024-03-01,Bob\n")
	uploadAndConfirm(t, service, user, payload)

	events, err := store.GetEvents(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, events, 1, "duplicate event names must collapse to one event")

	event := events[0]
	require.Equal(t, "Product Demo", event.Name)
	require.Equal(t, domain.EventTypeWebinar, event.Type)
	require.Equal(t, domain.EventStatusCompleted, event.Status)
	require.Equal(t, event.StartDate.Add(2*time.Hour), event.EndDate)
}

func TestDeleteImportEnforcesOwnership(t *testing.T) {
	service := NewService(storage.NewMemoryStorage())
	owner := domain.User{ID: uuid.New()}
	intruder := domain.User{ID: uuid.New()}
	ctx := context.Background()

	upload, err := service.Upload(ctx, owner, "report.csv", int64(len(campaignCSV)), campaignCSV)
	require.NoError(t, err)

	err = service.DeleteImport(ctx, intruder, upload.ImportID)
	require.ErrorIs(t, err, ErrImportNotFound)

	err = service.DeleteImport(ctx, owner, upload.ImportID)
	require.NoError(t, err)

	_, err = service.Import(ctx, owner, upload.ImportID)
	require.ErrorIs(t, err, ErrImportNotFound)
}
