package service

import "testing"

func TestGuardQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"plain select", "SELECT * FROM orders", false},
		{"select with where", "select amount from orders where region = 'EU'", false},
		{"drop upper", "DROP TABLE users", true},
		{"drop lower", "drop table users", true},
		{"drop mixed", "DrOp TaBlE users", true},
		{"insert", "INSERT INTO orders VALUES (1)", true},
		{"delete", "delete from orders", true},
		{"truncate", "TRUNCATE orders", true},
		{"pragma", "PRAGMA table_info(orders)", true},
		{"stacked statement", "SELECT 1; DROP TABLE users", true},
		{"keyword inside identifier is rejected too", "SELECT created_at FROM orders", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GuardQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("GuardQuery(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestEnforceLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		max   int
		want  string
	}{
		{"appends when missing", "SELECT * FROM orders", 5000, "SELECT * FROM orders LIMIT 5000"},
		{"strips trailing semicolon", "SELECT * FROM orders; ", 5000, "SELECT * FROM orders LIMIT 5000"},
		{"rewrites oversized limit", "SELECT * FROM orders LIMIT 999999", 5000, "SELECT * FROM orders LIMIT 5000"},
		{"rewrites lowercase limit", "select * from orders limit 999999", 5000, "select * from orders LIMIT 5000"},
		{"keeps smaller limit", "SELECT * FROM orders LIMIT 10", 5000, "SELECT * FROM orders LIMIT 10"},
		{"keeps equal limit", "SELECT * FROM orders LIMIT 5000", 5000, "SELECT * FROM orders LIMIT 5000"},
		{"rewrites limit mid-query", "SELECT * FROM orders LIMIT 90000 OFFSET 10", 5000, "SELECT * FROM orders LIMIT 5000 OFFSET 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnforceLimit(tt.query, tt.max); got != tt.want {
				t.Errorf("EnforceLimit(%q, %d) = %q, want %q", tt.query, tt.max, got, tt.want)
			}
		})
	}
}
