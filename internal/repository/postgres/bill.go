package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository"
)

type billRepository struct {
	BaseRepository
}

func NewBillRepository(base BaseRepository) repository.BillRepository {
	return &billRepository{base}
}

const billColumns = `
	b.bill_id, b.visit_id, b.patient_id, b.subtotal, b.tax, b.amount_total, b.status,
	b.payment_method_id, b.payment_date, b.billing_date, b.created_at`

const billRecordQuery = `
	SELECT ` + billColumns + `,
		p.first_name, p.last_name, p.phone, p.email,
		pm.name AS payment_method_name,
		NULLIF(CONCAT_WS(' ', d.first_name, d.last_name), '') AS doctor_name
	FROM bills b
	LEFT JOIN patients p ON p.patient_id = b.patient_id
	LEFT JOIN payment_methods pm ON pm.method_id = b.payment_method_id
	LEFT JOIN visits v ON v.visit_id = b.visit_id
	LEFT JOIN doctors d ON d.doctor_id = v.doctor_id`

const itemColumns = `service_id, bill_id, service_name, amount, quantity`

func (r *billRepository) Create(ctx context.Context, bill *model.Bill) error {
	query := `
		INSERT INTO bills (
			bill_id, visit_id, patient_id, subtotal, tax, amount_total, status,
			payment_method_id, payment_date, billing_date, created_at
		) VALUES (
			:bill_id, :visit_id, :patient_id, :subtotal, :tax, :amount_total, :status,
			:payment_method_id, :payment_date, :billing_date, :created_at
		)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, bill); err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

func (r *billRepository) Get(ctx context.Context, id string) (*model.Bill, error) {
	var bill model.Bill
	query := `SELECT ` + billColumns + ` FROM bills b WHERE b.bill_id = $1`
	if err := sqlx.GetContext(ctx, r.db, &bill, query, id); err != nil {
		return nil, notFound(err, "get bill")
	}
	return &bill, nil
}

func (r *billRepository) GetRecord(ctx context.Context, id string) (*model.BillRecord, error) {
	var record model.BillRecord
	if err := sqlx.GetContext(ctx, r.db, &record, billRecordQuery+` WHERE b.bill_id = $1`, id); err != nil {
		return nil, notFound(err, "get bill record")
	}

	items, err := r.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Items = items
	return &record, nil
}

func (r *billRepository) List(ctx context.Context, filters model.InvoiceFilters) ([]model.BillRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("LOWER(b.status) = LOWER($%d)", len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where = append(where, fmt.Sprintf(
			"(b.bill_id ILIKE $%d OR CONCAT(p.first_name, ' ', p.last_name) ILIKE $%d)", len(args), len(args)))
	}

	query := billRecordQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.billing_date DESC"

	var records []model.BillRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	items, err := r.ItemsForBills(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Items = items[records[i].ID]
	}
	return records, nil
}

func (r *billRepository) FindPendingForDay(ctx context.Context, patientID string, dayStart, dayEnd time.Time) (*model.Bill, error) {
	var bill model.Bill
	query := `SELECT ` + billColumns + ` FROM bills b
		WHERE b.patient_id = $1
			AND LOWER(b.status) = 'pending'
			AND b.billing_date >= $2 AND b.billing_date < $3
		ORDER BY b.billing_date DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &bill, query, patientID, dayStart, dayEnd); err != nil {
		return nil, notFound(err, "find pending bill")
	}
	return &bill, nil
}

func (r *billRepository) Update(ctx context.Context, id string, changes repository.BillChanges) error {
	if changes.Empty() {
		return nil
	}
	query, args := buildUpdate("bills", "bill_id", id, changes)
	return r.update(ctx, query, args, "update bill")
}

func (r *billRepository) DeleteByPatient(ctx context.Context, patientID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("failed to delete bills: %w", err)
	}
	return nil
}

func (r *billRepository) Items(ctx context.Context, billID string) ([]model.BillService, error) {
	var items []model.BillService
	query := `SELECT ` + itemColumns + ` FROM bill_services WHERE bill_id = $1 ORDER BY line_no`
	if err := sqlx.SelectContext(ctx, r.db, &items, query, billID); err != nil {
		return nil, fmt.Errorf("failed to list bill items: %w", err)
	}
	return items, nil
}

func (r *billRepository) ItemsForBills(ctx context.Context, billIDs []string) (map[string][]model.BillService, error) {
	var items []model.BillService
	query := `SELECT ` + itemColumns + ` FROM bill_services WHERE bill_id = ANY($1) ORDER BY bill_id, line_no`
	if err := sqlx.SelectContext(ctx, r.db, &items, query, pq.Array(billIDs)); err != nil {
		return nil, fmt.Errorf("failed to list bill items: %w", err)
	}

	byBill := make(map[string][]model.BillService, len(billIDs))
	for _, item := range items {
		byBill[item.BillID] = append(byBill[item.BillID], item)
	}
	return byBill, nil
}

func (r *billRepository) FindItem(ctx context.Context, billID, serviceName string) (*model.BillService, error) {
	var item model.BillService
	query := `SELECT ` + itemColumns + ` FROM bill_services
		WHERE bill_id = $1 AND service_name = $2
		ORDER BY line_no
		LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &item, query, billID, serviceName); err != nil {
		return nil, notFound(err, "find bill item")
	}
	return &item, nil
}

func (r *billRepository) AddItem(ctx context.Context, item *model.BillService) error {
	query := `
		INSERT INTO bill_services (service_id, bill_id, service_name, amount, quantity)
		VALUES (:service_id, :bill_id, :service_name, :amount, :quantity)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, item); err != nil {
		return fmt.Errorf("failed to add bill item: %w", err)
	}
	return nil
}

func (r *billRepository) UpdateItem(ctx context.Context, item *model.BillService) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bill_services SET amount = $1, quantity = $2 WHERE service_id = $3`,
		item.Amount, item.Quantity, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update bill item: %w", err)
	}
	return requireRow(res, "update bill item")
}

func (r *billRepository) DeleteItemsByPatient(ctx context.Context, patientID string) error {
	query := `DELETE FROM bill_services WHERE bill_id IN (SELECT bill_id FROM bills WHERE patient_id = $1)`
	if _, err := r.db.ExecContext(ctx, query, patientID); err != nil {
		return fmt.Errorf("failed to delete bill items: %w", err)
	}
	return nil
}
