package rabbitmq

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestQueueNames(t *testing.T) {
	if got := RetryQueue("usage_records"); got != "usage_records.retry" {
		t.Fatalf("retry queue = %q", got)
	}
	if got := DeadLetterQueue("usage_records"); got != "usage_records.dlq" {
		t.Fatalf("dlq = %q", got)
	}
}

func TestAttempt(t *testing.T) {
	cases := []struct {
		headers amqp.Table
		want    int
	}{
		{nil, 0},
		{amqp.Table{"x-attempt": int32(2)}, 2},
		{amqp.Table{"x-attempt": int64(3)}, 3},
		{amqp.Table{"x-attempt": "nope"}, 0},
	}
	for _, tc := range cases {
		if got := Attempt(amqp.Delivery{Headers: tc.headers}); got != tc.want {
			t.Fatalf("Attempt(%v) = %d, want %d", tc.headers, got, tc.want)
		}
	}
}

func TestFormatExpiration(t *testing.T) {
	if got := formatExpiration(1500 * time.Millisecond); got != "1500" {
		t.Fatalf("expiration = %q", got)
	}
	if got := formatExpiration(0); got != "0" {
		t.Fatalf("expiration = %q", got)
	}
}
