package sync_test

import (
	"context"
	"testing"

	"github.com/homemade/capture2sailthru/sync"
	"github.com/homemade/capture2sailthru/sync/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func testConfig(mode sync.IdentityMode) sync.Config {
	return sync.Config{
		Attributes:   "profile.name, status, email",
		Lists:        "Newsletter",
		IdentityMode: mode,
	}
}

func testRecord(t *testing.T, id string) sync.Record {
	t.Helper()
	record, err := sync.ParseRecord(id, `{"uuid":"`+id+`","email":"`+id+`@example.com","status":"active","profile":{"name":"User `+id+`"}}`)
	require.NoError(t, err)
	return record
}

func upsertFor(id string) interface{} {
	return mock.MatchedBy(func(payload string) bool {
		return gjson.Get(payload, "id").String() == id
	})
}

func setupSyncer(t *testing.T, config sync.Config) (*sync.Syncer, *mocks.CaptureBackend, *mocks.CampaignAPI) {
	t.Helper()
	capture := new(mocks.CaptureBackend)
	api := new(mocks.CampaignAPI)
	syncer, err := sync.NewSyncer(config, capture, api, zap.NewNop())
	require.NoError(t, err)
	return syncer, capture, api
}

// recordUpserts records the ids posted to Sailthru, in order.
func recordUpserts(api *mocks.CampaignAPI) *[]string {
	var ids []string
	api.On("APIPost", mock.Anything, sync.UserResource, mock.Anything).
		Run(func(args mock.Arguments) {
			ids = append(ids, gjson.Get(args.String(2), "id").String())
		}).
		Return(sync.Response{Body: `{"ok":true}`}, nil)
	return &ids
}

func TestSync_NoPayload(t *testing.T) {
	for _, payload := range [][]sync.WebhookEntry{nil, {}} {
		syncer, capture, api := setupSyncer(t, testConfig(sync.EmailPrimary))

		assert.Equal(t, sync.NoPayload, syncer.Sync(context.Background(), payload))
		capture.AssertNotCalled(t, "GetRecord", mock.Anything, mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "APIGet", mock.Anything, mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "APIPost", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSync_NoAttributes(t *testing.T) {
	for _, attributes := range []string{"", "email, uuid"} {
		config := testConfig(sync.EmailPrimary)
		config.Attributes = attributes
		syncer, capture, api := setupSyncer(t, config)

		assert.Equal(t, sync.NoAttributes, syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}}))
		capture.AssertNotCalled(t, "GetRecord", mock.Anything, mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "APIGet", mock.Anything, mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "APIPost", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestSync_Done(t *testing.T) {
	syncer, capture, api := setupSyncer(t, testConfig(sync.ExtIDPrimaryWithMerge))
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
	capture.On("GetRecord", mock.Anything, "B", mock.Anything).Return(testRecord(t, "B"), nil)
	upserts := recordUpserts(api)

	outcome := syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}})
	assert.Equal(t, sync.Done, outcome)
	assert.Equal(t, "done", outcome.String())
	assert.Equal(t, []string{"A", "B"}, *upserts)
	api.AssertNumberOfCalls(t, "APIPost", 2)
	api.AssertNotCalled(t, "APIGet", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_UpsertPayload(t *testing.T) {
	syncer, capture, api := setupSyncer(t, testConfig(sync.ExtIDPrimaryWithMerge))
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
	api.On("APIPost", mock.Anything, sync.UserResource, mock.Anything).Return(sync.Response{Body: `{}`}, nil)

	require.Equal(t, sync.Done, syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}}))

	payload := api.Calls[0].Arguments.String(2)
	assert.JSONEq(t, `{
		"id": "A",
		"key": "extid",
		"keys": {"email": "A@example.com"},
		"keysconflict": "merge",
		"vars": {"profile_name": "User A", "status": "active"},
		"lists": {"Newsletter": 1}
	}`, payload)
}

func TestSync_UpsertKeepsNumberPrecision(t *testing.T) {
	config := testConfig(sync.ExtIDPrimaryWithMerge)
	config.Attributes = "memberNumber"
	syncer, capture, api := setupSyncer(t, config)
	record, err := sync.ParseRecord("A", `{"uuid":"A","email":"A@example.com","memberNumber":9007199254740993}`)
	require.NoError(t, err)
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(record, nil)
	api.On("APIPost", mock.Anything, sync.UserResource, mock.Anything).Return(sync.Response{Body: `{}`}, nil)

	require.Equal(t, sync.Done, syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}}))
	assert.Equal(t, "9007199254740993", gjson.Get(api.Calls[0].Arguments.String(2), "vars.memberNumber").Raw)
}

func TestSync_EmailPrimary(t *testing.T) {
	syncer, capture, api := setupSyncer(t, testConfig(sync.EmailPrimary))
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
	capture.On("GetRecord", mock.Anything, "B", mock.Anything).Return(testRecord(t, "B"), nil)
	// A is already known to Sailthru by email, B is not
	api.On("APIGet", mock.Anything, sync.UserResource, `{"id":"A@example.com","key":"email"}`).
		Return(sync.Response{Body: `{"keys":{"email":"A@example.com"}}`}, nil)
	api.On("APIGet", mock.Anything, sync.UserResource, `{"id":"B@example.com","key":"email"}`).
		Return(sync.Response{Error: &sync.APIError{Code: 99, Message: "User not found"}}, nil)
	api.On("APIPost", mock.Anything, sync.UserResource, mock.Anything).Return(sync.Response{Body: `{}`}, nil)

	require.Equal(t, sync.Done, syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}}))

	var posted []gjson.Result
	for _, call := range api.Calls {
		if call.Method == "APIPost" {
			posted = append(posted, gjson.Parse(call.Arguments.String(2)))
		}
	}
	require.Len(t, posted, 2)
	assert.Equal(t, "A@example.com", posted[0].Get("id").String())
	assert.Equal(t, "email", posted[0].Get("key").String())
	assert.Equal(t, "A", posted[0].Get("keys.extid").String())
	assert.Equal(t, "B", posted[1].Get("id").String())
	assert.Equal(t, "extid", posted[1].Get("key").String())
	assert.Equal(t, "B@example.com", posted[1].Get("keys.email").String())
	assert.False(t, posted[1].Get("keysconflict").Exists())
}

func TestSync_CaptureFailure(t *testing.T) {
	syncer, capture, api := setupSyncer(t, testConfig(sync.ExtIDPrimaryWithMerge))
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
	capture.On("GetRecord", mock.Anything, "B", mock.Anything).Return(sync.Record{}, &sync.CaptureError{ID: "B", Code: 310, Message: "record not found"})
	upserts := recordUpserts(api)

	outcome := syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}, {UUID: "C"}})
	assert.Equal(t, sync.CaptureFailure, outcome)
	assert.Equal(t, "fail (capture)", outcome.String())
	assert.Equal(t, []string{"A"}, *upserts)
	api.AssertNotCalled(t, "APIPost", mock.Anything, sync.UserResource, upsertFor("B"))
	capture.AssertNotCalled(t, "GetRecord", mock.Anything, "C", mock.Anything)
}

func TestSync_MissingAttribute(t *testing.T) {
	config := testConfig(sync.ExtIDPrimaryWithMerge)
	config.Attributes = "profile.work.title"
	syncer, capture, api := setupSyncer(t, config)
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)

	assert.Equal(t, sync.CaptureFailure, syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}}))
	api.AssertNotCalled(t, "APIPost", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_MissingUUID(t *testing.T) {
	syncer, capture, _ := setupSyncer(t, testConfig(sync.ExtIDPrimaryWithMerge))

	assert.Equal(t, sync.CaptureFailure, syncer.Sync(context.Background(), []sync.WebhookEntry{{}}))
	capture.AssertNotCalled(t, "GetRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestSync_CampaignFailure(t *testing.T) {
	t.Run("Lookup Error", func(t *testing.T) {
		syncer, capture, api := setupSyncer(t, testConfig(sync.EmailPrimary))
		capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
		api.On("APIGet", mock.Anything, sync.UserResource, mock.Anything).
			Return(sync.Response{Error: &sync.APIError{Code: 9, Message: "Internal error"}}, nil)

		outcome := syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}})
		assert.Equal(t, sync.CampaignFailure, outcome)
		assert.Equal(t, "fail (sailthru)", outcome.String())
		api.AssertNotCalled(t, "APIPost", mock.Anything, mock.Anything, mock.Anything)
		capture.AssertNotCalled(t, "GetRecord", mock.Anything, "B", mock.Anything)
	})

	t.Run("Upsert Rejected", func(t *testing.T) {
		syncer, capture, api := setupSyncer(t, testConfig(sync.ExtIDPrimaryWithMerge))
		capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
		api.On("APIPost", mock.Anything, sync.UserResource, mock.Anything).
			Return(sync.Response{Error: &sync.APIError{Code: 11, Message: "Invalid email"}}, nil)

		outcome := syncer.Sync(context.Background(), []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}})
		assert.Equal(t, sync.CampaignFailure, outcome)
		api.AssertNumberOfCalls(t, "APIPost", 1)
		capture.AssertNotCalled(t, "GetRecord", mock.Anything, "B", mock.Anything)
	})
}

// A failed batch is redelivered whole by the webhook sender, so records upserted
// before the failure are upserted again. Upserts are idempotent so this is accepted.
func TestSync_RedeliveryRepeatsEarlierUpserts(t *testing.T) {
	syncer, capture, api := setupSyncer(t, testConfig(sync.ExtIDPrimaryWithMerge))
	capture.On("GetRecord", mock.Anything, "A", mock.Anything).Return(testRecord(t, "A"), nil)
	capture.On("GetRecord", mock.Anything, "B", mock.Anything).Return(sync.Record{}, &sync.CaptureError{ID: "B", Code: 310}).Once()
	capture.On("GetRecord", mock.Anything, "B", mock.Anything).Return(testRecord(t, "B"), nil).Once()
	upserts := recordUpserts(api)

	payload := []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}}
	assert.Equal(t, sync.CaptureFailure, syncer.Sync(context.Background(), payload))
	assert.Equal(t, sync.Done, syncer.Sync(context.Background(), payload))
	assert.Equal(t, []string{"A", "A", "B"}, *upserts)
}

func TestParseWebhookPayload(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []sync.WebhookEntry
		wantErr bool
	}{
		{"Empty", ``, nil, false},
		{"Null", `null`, nil, false},
		{"Empty Array", `[]`, []sync.WebhookEntry{}, false},
		{"Entries With Extra Fields", `[{"uuid":"A","type":"entityUpdated"},{"uuid":"B"}]`, []sync.WebhookEntry{{UUID: "A"}, {UUID: "B"}}, false},
		{"Not An Array", `{"uuid":"A"}`, nil, true},
		{"Invalid", `[{`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := sync.ParseWebhookPayload([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "done", sync.Done.String())
	assert.Equal(t, "no webhook payload", sync.NoPayload.String())
	assert.Equal(t, "no attributes", sync.NoAttributes.String())
	assert.Equal(t, "fail (capture)", sync.CaptureFailure.String())
	assert.Equal(t, "fail (sailthru)", sync.CampaignFailure.String())
}
