package repository

import (
	"strings"

	"github.com/straye-as/crm-api/internal/policy"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // API field name
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (createdAt DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "createdAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// fieldMap maps API field names to column names; unknown fields fall back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ApplyScope narrows query to the records a visibility scope matches. The
// query must select from the table of scope.Entity.
func ApplyScope(query *gorm.DB, scope policy.Scope) *gorm.DB {
	if scope.None {
		return query.Where("1 = 0")
	}

	switch scope.Entity {
	case policy.EntityClient:
		if scope.SalesContactID != nil {
			query = query.Where("clients.sales_contact_id = ?", *scope.SalesContactID)
		}
		if scope.EventSupportContactID != nil {
			query = query.Where(
				"EXISTS (SELECT 1 FROM events WHERE events.client_id = clients.id AND events.support_contact_id = ?)",
				*scope.EventSupportContactID,
			)
		}
	case policy.EntityContract:
		if scope.ClientID != nil {
			query = query.Where("contracts.client_id = ?", *scope.ClientID)
		}
		if scope.SalesContactID != nil {
			query = query.Where("contracts.sales_contact_id = ?", *scope.SalesContactID)
		}
	case policy.EntityEvent:
		if scope.ClientID != nil {
			query = query.Where("events.client_id = ?", *scope.ClientID)
		}
		if scope.ContractID != nil {
			query = query.Where("events.contract_id = ?", *scope.ContractID)
		}
		if scope.SupportContactID != nil {
			query = query.Where("events.support_contact_id = ?", *scope.SupportContactID)
		}
	case policy.EntityDocument:
		if scope.ContractID != nil {
			query = query.Where("contract_documents.contract_id = ?", *scope.ContractID)
		}
		if scope.ContractSalesID != nil {
			query = query.Where(
				"EXISTS (SELECT 1 FROM contracts WHERE contracts.id = contract_documents.contract_id AND contracts.sales_contact_id = ?)",
				*scope.ContractSalesID,
			)
		}
	}
	return query
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
