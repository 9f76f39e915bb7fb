package core

import (
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestParseOrdering(t *testing.T) {
	allowed := []string{"title", "due_date"}
	tests := []struct {
		name   string
		values []string
		want   []DBOrdering
	}{
		{name: "none", want: []DBOrdering{}},
		{name: "ascending", values: []string{"title"}, want: []DBOrdering{{Field: "title", Ascending: true}}},
		{name: "descending", values: []string{"-due_date"}, want: []DBOrdering{{Field: "due_date"}}},
		{
			name:   "comma separated",
			values: []string{" -Due_Date , title"},
			want:   []DBOrdering{{Field: "due_date"}, {Field: "title", Ascending: true}},
		},
		{
			name:   "repeated",
			values: []string{"title", "-due_date"},
			want:   []DBOrdering{{Field: "title", Ascending: true}, {Field: "due_date"}},
		},
		{name: "unknown fields dropped", values: []string{"password,-id;drop"}, want: []DBOrdering{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseOrdering(tt.values, allowed...); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseOrdering() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNow(t *testing.T) {
	now := Now()
	if now.Location() != time.UTC {
		t.Errorf("Now().Location() = %v; want UTC", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Errorf("Now() = %v; want microsecond precision", now)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err                                              error
		notFound, invalidTransition, invariant, permission bool
	}{
		{err: NewNotFoundError("book not found"), notFound: true},
		{err: errors.Wrap(NewNotFoundError("book not found"), "getting book"), notFound: true},
		{err: NewInvalidTransitionError("already returned"), invalidTransition: true},
		{err: NewInvariantViolationError("not available"), invariant: true},
		{err: errors.Wrap(NewPermissionDeniedError("permission denied"), "approving"), permission: true},
		{err: errors.New("lol")},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v; want %v", got, tt.notFound)
			}
			if got := IsInvalidTransition(tt.err); got != tt.invalidTransition {
				t.Errorf("IsInvalidTransition() = %v; want %v", got, tt.invalidTransition)
			}
			if got := IsInvariantViolation(tt.err); got != tt.invariant {
				t.Errorf("IsInvariantViolation() = %v; want %v", got, tt.invariant)
			}
			if got := IsPermissionDenied(tt.err); got != tt.permission {
				t.Errorf("IsPermissionDenied() = %v; want %v", got, tt.permission)
			}
		})
	}
}
