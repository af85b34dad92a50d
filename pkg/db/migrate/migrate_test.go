package migrate

import "testing"

func TestToPgx5URL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgresql://u:p@host:5432/db", "pgx5://u:p@host:5432/db"},
		{"postgres://u:p@host/db?sslmode=disable", "pgx5://u:p@host/db?sslmode=disable"},
		{"pgx5://host/db", "pgx5://host/db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := toPgx5URL(tt.in); got != tt.want {
				t.Errorf("toPgx5URL() = %v, want %v", got, tt.want)
			}
		})
	}
}
