package realtime

// PublishBookingChange notifies both sides of a booking about an insert or a
// status update.
func PublishBookingChange(kind Kind, bookingID, customerID, taskerID string, payload any) {
	Publish(Change{
		Kind:         kind,
		Table:        TableBookings,
		RowID:        bookingID,
		Participants: []string{customerID, taskerID},
		Payload:      payload,
	})
}

// PublishMessage notifies both conversation participants about a new or
// updated message row.
func PublishMessage(kind Kind, messageID, participant1, participant2 string, payload any) {
	Publish(Change{
		Kind:         kind,
		Table:        TableMessages,
		RowID:        messageID,
		Participants: []string{participant1, participant2},
		Payload:      payload,
	})
}

// PublishNotification pushes an in-app notification row to its owner.
func PublishNotification(notificationID, userID string, payload any) {
	Publish(Change{
		Kind:         KindInsert,
		Table:        TableNotifications,
		RowID:        notificationID,
		Participants: []string{userID},
		Payload:      payload,
	})
}
