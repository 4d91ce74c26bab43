package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/orders"
	"laundry/internal/store"
)

type statusRequest struct {
	Status string `json:"status"`
}

func GetAllOrders(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pageFromQuery(c, false)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := svc.List(ctx, store.OrderFilter{Status: c.Query("status"), Page: page})
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, paginated(list, page, total))
	}
}

func UpdateOrderStatus(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}
		orderID, err := objectIDParam(c, "id", "order")
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req statusRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.Transition(ctx, actorID, orderID, req.Status)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"order": order})
	}
}

func DeleteOrder(svc *orders.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := objectIDParam(c, "id", "order")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.Delete(ctx, orderID); err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"message": "order deleted"})
	}
}
