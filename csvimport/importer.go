package csvimport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KitaosakaSystem/webSyuhai/models"
	"github.com/KitaosakaSystem/webSyuhai/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Required header columns per entity.
var (
	UserColumns     = []string{"userID", "password"}
	CustomerColumns = []string{"customerId", "name", "password", "kyoten_id"}
	StaffColumns    = []string{"userId", "name", "password", "kyoten_id"}
)

// maxStaffRoutes caps the routes_0..routes_9 columns read per staff row.
const maxStaffRoutes = 10

// IdentityRegistrar creates the auth identity behind an imported id.
// Satisfied by services.AuthService.
type IdentityRegistrar interface {
	Register(userID, password string) (*models.User, error)
}

// Importer applies parsed batches to the reference tables and the
// identity store. An id that already has an identity is not fatal: the
// row is logged and the batch continues.
type Importer struct {
	db   *gorm.DB
	auth IdentityRegistrar
}

func NewImporter(db *gorm.DB, auth IdentityRegistrar) *Importer {
	return &Importer{db: db, auth: auth}
}

// ImportUsers registers plain identities from userID/password rows.
func (im *Importer) ImportUsers(ctx context.Context, raw []byte) (*Result, error) {
	rows, err := ParseBatch(raw, UserColumns)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(rows)}
	for _, row := range rows {
		userID := row["userID"]
		if missing := MissingFields(row, UserColumns); len(missing) > 0 {
			result.Log(userID, StatusFailed, "missing required fields: "+strings.Join(missing, ", "))
			continue
		}

		_, err := im.auth.Register(userID, row["password"])
		switch {
		case errors.Is(err, services.ErrUserExists):
			result.Log(userID, StatusFailed, "user id already registered")
		case errors.Is(err, services.ErrInvalidUserID):
			result.Log(userID, StatusFailed, "user id must be 4 or 7 digits")
		case err != nil:
			result.Log(userID, StatusFailed, err.Error())
		default:
			result.Log(userID, StatusCreated, "registered")
		}
	}
	return result, nil
}

// ImportCustomers upserts customer reference rows and registers their
// identities on first sight.
func (im *Importer) ImportCustomers(ctx context.Context, raw []byte) (*Result, error) {
	rows, err := ParseBatch(raw, CustomerColumns)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(rows)}
	for _, row := range rows {
		customerID := row["customerId"]
		if missing := MissingFields(row, CustomerColumns); len(missing) > 0 {
			result.Log(customerID, StatusFailed, "missing required fields: "+strings.Join(missing, ", "))
			continue
		}

		exists, err := im.rowExists(ctx, &models.Customer{}, customerID)
		if err != nil {
			result.Log(customerID, StatusFailed, err.Error())
			continue
		}

		customer := models.Customer{
			UserID:   customerID,
			Name:     row["name"],
			Address:  row["address"],
			Phone:    row["phone"],
			KyotenID: row["kyoten_id"],
		}
		if err := im.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&customer).Error; err != nil {
			result.Log(customerID, StatusFailed, err.Error())
			continue
		}

		im.registerIdentity(result, customerID, row["password"], exists)
	}
	return result, nil
}

// ImportStaff upserts staff reference rows, collecting the optional
// routes_0..routes_9 columns into the assignable route list.
func (im *Importer) ImportStaff(ctx context.Context, raw []byte) (*Result, error) {
	rows, err := ParseBatch(raw, StaffColumns)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(rows)}
	for _, row := range rows {
		staffID := row["userId"]
		if missing := MissingFields(row, StaffColumns); len(missing) > 0 {
			result.Log(staffID, StatusFailed, "missing required fields: "+strings.Join(missing, ", "))
			continue
		}

		exists, err := im.rowExists(ctx, &models.Staff{}, staffID)
		if err != nil {
			result.Log(staffID, StatusFailed, err.Error())
			continue
		}

		staff := models.Staff{
			UserID:   staffID,
			Name:     row["name"],
			KyotenID: row["kyoten_id"],
			Routes:   StaffRoutes(row),
		}
		if err := im.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&staff).Error; err != nil {
			result.Log(staffID, StatusFailed, err.Error())
			continue
		}

		im.registerIdentity(result, staffID, row["password"], exists)
	}
	return result, nil
}

// StaffRoutes extracts the non-empty routes_0..routes_9 values in order.
func StaffRoutes(row map[string]string) []string {
	var routes []string
	for i := 0; i < maxStaffRoutes; i++ {
		if v := row[fmt.Sprintf("routes_%d", i)]; v != "" {
			routes = append(routes, v)
		}
	}
	return routes
}

func (im *Importer) rowExists(ctx context.Context, model interface{}, id string) (bool, error) {
	err := im.db.WithContext(ctx).First(model, "user_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// registerIdentity creates the auth identity for new rows. Overwrites
// keep their existing identity; an AlreadyExists conflict is logged but
// does not fail the row.
func (im *Importer) registerIdentity(result *Result, id, password string, existed bool) {
	if existed {
		result.Log(id, StatusOverwritten, "reference data overwritten")
		return
	}
	if _, err := im.auth.Register(id, password); err != nil && !errors.Is(err, services.ErrUserExists) {
		result.Log(id, StatusFailed, "identity registration failed: "+err.Error())
		return
	}
	result.Log(id, StatusCreated, "registered")
}
