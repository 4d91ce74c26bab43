package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/orders"
)

func CreateOrder(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req orders.CreateInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.Create(ctx, userID, req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusCreated, gin.H{"order": order})
	}
}

func GetOrders(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		page, err := pageFromQuery(c, false)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := svc.ListForUser(ctx, userID, page)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, paginated(list, page, total))
	}
}

func GetOrder(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		orderID, err := objectIDParam(c, "id", "order")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.GetForUser(ctx, userID, orderID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"order": order})
	}
}

func CancelOrder(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		orderID, err := objectIDParam(c, "id", "order")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.Cancel(ctx, userID, orderID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"order": order})
	}
}
