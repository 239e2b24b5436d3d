package fields

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/Sternrassler/stage-sync/internal/testutil"
	"github.com/Sternrassler/stage-sync/pkg/client"
)

func newTestClient(t *testing.T, mock *testutil.MockAPI) *client.Client {
	t.Helper()

	c, err := client.New(client.Config{BaseURL: mock.URL(), Token: "tok"})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}

func TestFetch_Number(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetNumber("rec1", "ID", 7)

	got, err := Fetch(context.Background(), newTestClient(t, mock), ID, "rec1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Value() != 7 {
		t.Errorf("Value() = %d, want 7", got.Value())
	}
}

func TestFetch_Title(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetTitle("rec1", "Name", "Rally", "X")

	got, err := Fetch(context.Background(), newTestClient(t, mock), Name, "rec1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Text() != "Rally" {
		t.Errorf("Text() = %q, want first segment %q", got.Text(), "Rally")
	}
	if len(got.Results) != 2 {
		t.Errorf("segments = %d, want 2", len(got.Results))
	}
}

func TestFetch_Tags(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetTags("rec1", "Tags", "gravel", "night")

	got, err := Fetch(context.Background(), newTestClient(t, mock), Tags, "rec1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if names := got.Names(); !reflect.DeepEqual(names, []string{"gravel", "night"}) {
		t.Errorf("Names() = %v", names)
	}
}

func TestFetch_EveryCallHitsTheAPI(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetNumber("rec1", "ID", 7)
	c := newTestClient(t, mock)

	if _, err := Fetch(context.Background(), c, ID, "rec1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Fatalf("RequestCount = %d, want 1", got)
	}

	mock.Reset()
	mock.SetNumber("rec1", "ID", 8)

	got, err := Fetch(context.Background(), c, ID, "rec1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Value() != 8 {
		t.Errorf("Value() = %d, want 8 from a fresh request", got.Value())
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("RequestCount after Reset = %d, want 1", got)
	}
}

func TestFetch_CustomPropertyID(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetNumber("rec1", "Stage Number", 42)

	got, err := Fetch(context.Background(), newTestClient(t, mock), Descriptor[Number]{PropertyID: "Stage Number"}, "rec1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Value() != 42 {
		t.Errorf("Value() = %d, want 42", got.Value())
	}
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		response   testutil.MockResponse
		wantKind   client.ErrorKind
		wantStatus int
	}{
		{
			name:       "unauthorized",
			response:   testutil.NewErrorResponse(http.StatusUnauthorized, "unauthorized"),
			wantKind:   client.KindRemote,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:     "empty title",
			response: testutil.NewJSONResponse(`{"object":"list","results":[]}`),
			wantKind: client.KindDecode,
		},
		{
			name:     "missing results",
			response: testutil.NewJSONResponse(`{"object":"list"}`),
			wantKind: client.KindDecode,
		},
		{
			name:     "wrong shape",
			response: testutil.NewJSONResponse(`{"results":"nope"}`),
			wantKind: client.KindDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse(testutil.PropertyPath("rec1", "Name"), tt.response)

			_, err := Fetch(context.Background(), newTestClient(t, mock), Name, "rec1")

			var apiErr *client.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *client.Error", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, tt.wantKind)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestFetch_TagsShape(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "empty option list",
			body: `{"object":"property_item","type":"multi_select","multi_select":[]}`,
		},
		{
			name:    "empty object",
			body:    `{}`,
			wantErr: true,
		},
		{
			name:    "null body",
			body:    `null`,
			wantErr: true,
		},
		{
			name:    "null multi_select",
			body:    `{"multi_select":null}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			mock.SetResponse(testutil.PropertyPath("rec1", "Tags"), testutil.NewJSONResponse(tt.body))

			got, err := Fetch(context.Background(), newTestClient(t, mock), Tags, "rec1")
			if tt.wantErr {
				if !client.IsKind(err, client.KindDecode) {
					t.Errorf("error = %v, want decode error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if names := got.Names(); len(names) != 0 {
				t.Errorf("Names() = %v, want empty", names)
			}
		})
	}
}

func TestFetch_NullNumber(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.PropertyPath("rec1", "ID"), testutil.NewJSONResponse(`{"object":"property_item","type":"number","number":null}`))

	_, err := Fetch(context.Background(), newTestClient(t, mock), ID, "rec1")
	if !client.IsKind(err, client.KindDecode) {
		t.Errorf("error = %v, want decode error", err)
	}
}

func TestFetch_NumberOutOfRange(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.PropertyPath("rec1", "ID"), testutil.NewJSONResponse(`{"number": 3000000000}`))

	_, err := Fetch(context.Background(), newTestClient(t, mock), ID, "rec1")
	if !client.IsKind(err, client.KindDecode) {
		t.Errorf("error = %v, want decode error", err)
	}
}

func TestFetch_UnknownRecord(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	_, err := Fetch(context.Background(), newTestClient(t, mock), Tags, "missing")
	if !client.IsKind(err, client.KindRemote) {
		t.Errorf("error = %v, want remote error", err)
	}
}

func TestMultiSelect_Names(t *testing.T) {
	tests := []struct {
		name     string
		options  []Option
		expected []string
	}{
		{
			name:     "empty",
			options:  nil,
			expected: []string{},
		},
		{
			name:     "keeps order",
			options:  []Option{{Name: "night"}, {Name: "gravel"}},
			expected: []string{"night", "gravel"},
		},
		{
			name:     "drops duplicates",
			options:  []Option{{Name: "snow"}, {Name: "tarmac"}, {Name: "snow"}},
			expected: []string{"snow", "tarmac"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MultiSelect{MultiSelect: tt.options}.Names()
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Names() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTitle_Validate(t *testing.T) {
	if err := (Title{}).Validate(); err == nil {
		t.Error("empty title should not validate")
	}
	if err := (Title{Results: []TitleResult{{Title: Text{PlainText: ""}}}}).Validate(); err != nil {
		t.Errorf("title with one empty segment: unexpected error %v", err)
	}
}
