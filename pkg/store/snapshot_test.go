package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestSnapshot_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{
			name:      "no expiry",
			expiresAt: nil,
			want:      false,
		},
		{
			name:      "expired",
			expiresAt: timePtr(time.Now().Add(-1 * time.Hour)),
			want:      true,
		},
		{
			name:      "valid",
			expiresAt: timePtr(time.Now().Add(1 * time.Hour)),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &Snapshot{ExpiresAt: tt.expiresAt}
			if got := snapshot.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshot_Age(t *testing.T) {
	snapshot := &Snapshot{SyncedAt: time.Now().Add(-2 * time.Minute)}

	age := snapshot.Age()
	if age < 2*time.Minute || age > 3*time.Minute {
		t.Errorf("Age() = %v, want about 2m", age)
	}
}

func TestSnapshot_JSONOmitsMissingExpiry(t *testing.T) {
	data, err := json.Marshal(Snapshot{CollectionID: "db1", SyncedAt: time.Now()})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "expires_at") {
		t.Errorf("snapshot without ttl encoded expires_at: %s", data)
	}

	data, err = json.Marshal(Snapshot{CollectionID: "db1", ExpiresAt: timePtr(time.Now())})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "expires_at") {
		t.Errorf("snapshot with ttl is missing expires_at: %s", data)
	}
}
