package random_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/e2bridge/e2bridge/common/random"
)

func TestUniqueness(t *testing.T) {
	tests := []struct {
		name          string
		generator     func() string
		iterations    int
		expectedUniq  bool
		allowDupsRate float64 // Allow this rate of duplicates (for functions with limited output space)
	}{
		{
			name:         "GetUUID should always generate unique values",
			generator:    random.GetUUID,
			iterations:   10000,
			expectedUniq: true,
		},
		{
			name:         "NewUUID should always generate unique values",
			generator:    random.NewUUID,
			iterations:   10000,
			expectedUniq: true,
		},
		{
			name: "GetRandomNumberString(10) should generate mostly unique values",
			generator: func() string {
				return random.GetRandomNumberString(10)
			},
			iterations:    10000,
			expectedUniq:  false,
			allowDupsRate: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool, tt.iterations)
			duplicates := 0

			for i := 0; i < tt.iterations; i++ {
				val := tt.generator()
				if seen[val] {
					duplicates++
				} else {
					seen[val] = true
				}
			}

			dupRate := float64(duplicates) / float64(tt.iterations)
			if tt.expectedUniq && duplicates > 0 {
				t.Errorf("Expected all unique values, but found %d duplicates out of %d iterations (%.4f%%)",
					duplicates, tt.iterations, dupRate*100)
			} else if !tt.expectedUniq && dupRate > tt.allowDupsRate {
				t.Errorf("Duplicate rate of %.4f%% exceeds allowable threshold of %.4f%%",
					dupRate*100, tt.allowDupsRate*100)
			}
		})
	}
}

func TestUUIDShapes(t *testing.T) {
	if got := random.GetUUID(); len(got) != 32 {
		t.Fatalf("GetUUID length = %d, want 32", len(got))
	}

	handle := random.NewUUID()
	parsed, err := uuid.Parse(handle)
	if err != nil {
		t.Fatalf("NewUUID produced unparsable value %q: %v", handle, err)
	}
	if parsed.Version() != 4 {
		t.Fatalf("NewUUID version = %d, want 4", parsed.Version())
	}
	if parsed.String() != handle {
		t.Fatalf("NewUUID is not canonical: %q", handle)
	}
}
