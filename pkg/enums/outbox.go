package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateUser    OutboxAggregateType = "user"
	AggregateListing OutboxAggregateType = "listing"
	AggregateReview  OutboxAggregateType = "review"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateUser,
	AggregateListing,
	AggregateReview,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced             OutboxEventType = "order_placed"
	EventUserRegistered          OutboxEventType = "user_registered"
	EventPasswordResetRequested  OutboxEventType = "password_reset_requested"
	EventListingDisabled         OutboxEventType = "listing_disabled"
	EventListingDeleted          OutboxEventType = "listing_deleted"
	EventReviewVisibilityChanged OutboxEventType = "review_visibility_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventUserRegistered,
	EventPasswordResetRequested,
	EventListingDisabled,
	EventListingDeleted,
	EventReviewVisibilityChanged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
