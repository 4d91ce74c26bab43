package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/contact"
	"laundry/internal/store"
)

func SubmitContact(svc *contact.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contact.MessageInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := svc.Submit(ctx, req); err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusCreated, gin.H{"message": "thanks, we will get back to you soon"})
	}
}

func GetContacts(svc *contact.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pageFromQuery(c, false)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := svc.List(ctx, store.ContactFilter{UnreadOnly: c.Query("unread") == "true", Page: page})
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, paginated(list, page, total))
	}
}

func MarkContactRead(svc *contact.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := objectIDParam(c, "id", "message")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		msg, err := svc.MarkRead(ctx, id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"contact": msg})
	}
}

func DeleteContact(svc *contact.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := objectIDParam(c, "id", "message")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.Delete(ctx, id); err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"message": "message deleted"})
	}
}
