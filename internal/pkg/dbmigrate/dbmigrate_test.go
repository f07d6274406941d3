package dbmigrate

import "testing"

func TestDriverURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "postgres scheme", in: "postgres://u:p@localhost:5432/db?sslmode=disable", want: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{name: "postgresql scheme", in: "postgresql://u:p@db/app", want: "pgx5://u:p@db/app"},
		{name: "already pgx5", in: "pgx5://u:p@db/app", want: "pgx5://u:p@db/app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := driverURL(tt.in); got != tt.want {
				t.Fatalf("driverURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
