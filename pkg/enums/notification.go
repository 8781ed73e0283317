package enums

// NotificationType groups in-app notifications by the flow that raised them.
type NotificationType string

const (
	NotificationTypeOrderAlert   NotificationType = "order_alert"
	NotificationTypeInvoiceAlert NotificationType = "invoice_alert"
	NotificationTypePaymentAlert NotificationType = "payment_alert"
)

var notificationTypes = []NotificationType{
	NotificationTypeOrderAlert,
	NotificationTypeInvoiceAlert,
	NotificationTypePaymentAlert,
}

func (n NotificationType) IsValid() bool { return known(n, notificationTypes) }

func ParseNotificationType(raw string) (NotificationType, error) {
	return parse("notification type", raw, notificationTypes)
}
