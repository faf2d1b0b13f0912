package metrics

import "testing"

// TestRouteLabelCollapsesIdentifiers verifies identifier segments never leak
// into metric labels.
func TestRouteLabelCollapsesIdentifiers(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/documents/upload", "/api/documents/upload"},
		{"/api/reservations/abc-123", "/api/reservations/:id"},
		{"/api/reservations/abc-123/sign", "/api/reservations/:id/sign"},
		{"/api/tours/destination/granada", "/api/tours/destination/:destination"},
		{"/healthz", "/healthz"},
		{"/favicon.ico", "other"},
		{"/wp-admin", "other"},
	}
	for _, tc := range cases {
		if got := routeLabel(tc.path); got != tc.want {
			t.Errorf("routeLabel(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
