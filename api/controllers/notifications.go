package controllers

import (
	"net/http"

	"github.com/angelmondragon/tradelink-backend/api/validators"
	"github.com/angelmondragon/tradelink-backend/internal/notifications"
	"github.com/angelmondragon/tradelink-backend/pkg/auth"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

// ListNotifications returns the caller's inbox, newest first.
// ?unread_only=true hides notifications already read.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("notifications", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		params, err := pageParams(r)
		if err != nil {
			return 0, nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			return 0, nil, err
		}
		page, err := svc.List(r.Context(), caller.UserID, notifications.ListParams{Params: params, UnreadOnly: unreadOnly})
		return http.StatusOK, page, err
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("notifications", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		id, err := validators.ParseURLUUID(r, "notificationId")
		if err != nil {
			return 0, nil, err
		}
		if err := svc.MarkRead(r.Context(), caller.UserID, id); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return withCaller("notifications", svc != nil, logg, func(r *http.Request, caller auth.Principal) (int, any, error) {
		updated, err := svc.MarkAllRead(r.Context(), caller.UserID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, map[string]int64{"updated": updated}, nil
	})
}
