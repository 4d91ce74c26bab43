package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/account"
	"laundry/internal/apperr"
	"laundry/internal/uploads"
)

func GetUser(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.GetUser(ctx, userID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"user": user})
	}
}

func UpdateUser(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req account.ProfileInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.UpdateProfile(ctx, userID, req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"user": user})
	}
}

// UploadProfileImage stores the new image first, then swaps the reference
// and removes the file it replaced.
func UploadProfileImage(accounts *account.Service, images *uploads.ImageStore, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uploads.MaxImageSize+(1<<20))
		file, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, log, apperr.Validation("image file too large (max 5MB)"))
				return
			}
			respondError(c, log, apperr.Validation("image file is required"))
			return
		}

		path, err := images.SaveProfileImage(file)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		previous, err := accounts.SetProfileImage(ctx, userID, path)
		if err != nil {
			if delErr := images.Delete(path); delErr != nil {
				log.WithError(delErr).WithField("path", path).Warn("could not remove orphaned upload")
			}
			respondError(c, log, err)
			return
		}

		if previous != "" && previous != path {
			if err := images.Delete(previous); err != nil {
				log.WithError(err).WithFields(logrus.Fields{"userId": userID.Hex(), "path": previous}).Warn("could not remove previous profile image")
			}
		}

		respondOK(c, http.StatusOK, gin.H{"profileImage": path})
	}
}

func GetUserAddresses(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		addresses, err := accounts.ListAddresses(ctx, userID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"addresses": addresses})
	}
}

func CreateUserAddress(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req account.AddressInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		address, addresses, err := accounts.AddAddress(ctx, userID, req)
		if err != nil {
			respondError(c, log, err)
			return
		}

		log.WithFields(logrus.Fields{"userId": userID.Hex(), "addressId": address.ID}).Info("address created")
		respondOK(c, http.StatusOK, gin.H{"address": address, "addresses": addresses})
	}
}

func DeleteUserAddress(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))

		ctx, cancel := requestContext(c)
		defer cancel()

		addresses, err := accounts.DeleteAddress(ctx, userID, addressID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"addresses": addresses})
	}
}

func SetDefaultUserAddress(accounts *account.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			respondError(c, log, err)
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))

		ctx, cancel := requestContext(c)
		defer cancel()

		addresses, err := accounts.SetDefaultAddress(ctx, userID, addressID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"addresses": addresses})
	}
}
