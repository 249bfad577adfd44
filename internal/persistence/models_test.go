package persistence

import "testing"

func TestStatusAndRoleValid(t *testing.T) {
	t.Parallel()

	for _, status := range Statuses {
		if !status.Valid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	if Status("cancelled").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
	if !RoleInstructor.Valid() || Role("docente").Valid() {
		t.Fatalf("unexpected role validity")
	}
}

func TestBookingFilter_Matches(t *testing.T) {
	t.Parallel()

	booking := Booking{ID: 1, RoomID: 2, UserID: 3, Date: "2024-05-10", Status: StatusApproved}
	room := int64(2)
	otherUser := int64(9)
	approved := StatusApproved
	from, to := "2024-05-01", "2024-05-10"
	late := "2024-05-11"

	cases := []struct {
		name   string
		filter BookingFilter
		want   bool
	}{
		{"empty filter matches", BookingFilter{}, true},
		{"room and status combine", BookingFilter{RoomID: &room, Status: &approved}, true},
		{"any mismatch excludes", BookingFilter{RoomID: &room, UserID: &otherUser}, false},
		{"inclusive date range", BookingFilter{DateFrom: &from, DateTo: &to}, true},
		{"range starting after date", BookingFilter{DateFrom: &late}, false},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(booking); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
