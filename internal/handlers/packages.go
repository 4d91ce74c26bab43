package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"laundry/internal/catalog"
	"laundry/internal/models"
	"laundry/internal/store"
)

type categoryView struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

var packageCategories = []categoryView{
	{Slug: models.CategoryWash, Name: "Wash"},
	{Slug: models.CategoryDryClean, Name: "Dry cleaning"},
	{Slug: models.CategoryIron, Name: "Ironing"},
	{Slug: models.CategoryWashAndIron, Name: "Wash & iron"},
	{Slug: models.CategorySpecial, Name: "Special care"},
}

// GetCategories lists the package categories used to filter GET /packages.
func GetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		respondOK(c, http.StatusOK, gin.H{"data": packageCategories})
	}
}

// GetPackages lists active packages. Pagination applies only when page or
// limit is given.
func GetPackages(packages *catalog.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pageFromQuery(c, true)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := packages.ListActive(ctx, store.PackageFilter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
			Page:     page,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, paginated(list, page, total))
	}
}

func GetPackage(packages *catalog.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := objectIDParam(c, "id", "package")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		pkg, err := packages.GetActive(ctx, id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"package": pkg})
	}
}

// GetAllPackages is the admin listing, inactive packages included.
func GetAllPackages(packages *catalog.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := pageFromQuery(c, false)
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := packages.List(ctx, store.PackageFilter{
			Category: c.Query("category"),
			Search:   c.Query("search"),
			Page:     page,
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, paginated(list, page, total))
	}
}

func CreatePackage(packages *catalog.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.CreateInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		pkg, err := packages.Create(ctx, req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusCreated, gin.H{"package": pkg})
	}
}

func UpdatePackage(packages *catalog.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := objectIDParam(c, "id", "package")
		if err != nil {
			respondError(c, log, err)
			return
		}

		var req catalog.UpdateInput
		if err := bindJSON(c, &req); err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		pkg, err := packages.Update(ctx, id, req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"package": pkg})
	}
}

// DeletePackage deactivates the package; it stays referenced by orders.
func DeletePackage(packages *catalog.Service, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := objectIDParam(c, "id", "package")
		if err != nil {
			respondError(c, log, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := packages.Deactivate(ctx, id); err != nil {
			respondError(c, log, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"message": "package deactivated"})
	}
}
