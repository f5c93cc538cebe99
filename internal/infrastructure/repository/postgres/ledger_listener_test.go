package postgres

import (
	"slices"
	"testing"

	"github.com/riskibarqy/auction-ledger/internal/domain/ledger"
)

func TestNotificationRoundTrip(t *testing.T) {
	t.Parallel()

	payload := formatNotification(42, []ledger.Topic{ledger.TopicAuctionState, ledger.TopicTeams})
	if payload != "42|auctionState,teams" {
		t.Fatalf("unexpected payload: %q", payload)
	}

	version, topics, err := parseNotification(payload)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if version != 42 {
		t.Fatalf("expected version 42, got %d", version)
	}
	if !slices.Equal(topics, []ledger.Topic{ledger.TopicAuctionState, ledger.TopicTeams}) {
		t.Fatalf("unexpected topics: %v", topics)
	}
}

func TestParseNotificationRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"", "42", "x|teams", "7|teams,bogus"} {
		if _, _, err := parseNotification(payload); err == nil {
			t.Fatalf("expected error for payload %q", payload)
		}
	}
}

func TestParseNotificationAllowsEmptyTopics(t *testing.T) {
	t.Parallel()

	version, topics, err := parseNotification("3|")
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if version != 3 || len(topics) != 0 {
		t.Fatalf("unexpected result: version=%d topics=%v", version, topics)
	}
}
