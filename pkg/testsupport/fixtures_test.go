package testsupport

import (
	"path/filepath"
	"testing"
)

func TestOrderFixtureMatchesFile(t *testing.T) {
	t.Parallel()

	got := LoadSchema(t, filepath.Join("testdata", "order.json"))
	if diff := CompareGolden(OrderSchema(), got); diff != "" {
		t.Fatalf("fixture mismatch (-want +got):\n%s", diff)
	}
}
