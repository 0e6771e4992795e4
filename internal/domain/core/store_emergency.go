package core

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const emergencyContactColumns = `
    id, employee_id, full_name, relationship,
    COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''),
    is_primary, created_at, updated_at`

func (s *Store) ListEmergencyContacts(ctx context.Context, employeeID string) ([]EmergencyContact, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+emergencyContactColumns+`
    FROM employee_emergency_contacts
    WHERE employee_id = $1
    ORDER BY is_primary DESC, created_at ASC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmergencyContact
	for rows.Next() {
		contact, err := scanEmergencyContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, contact)
	}
	return out, rows.Err()
}

// ReplaceEmergencyContacts swaps the full contact set in one transaction.
// Rows without a name or relationship are dropped, and only the first
// contact flagged primary keeps the flag.
func (s *Store) ReplaceEmergencyContacts(ctx context.Context, employeeID string, contacts []EmergencyContact) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM employee_emergency_contacts WHERE employee_id = $1", employeeID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	primarySeen := false
	for _, contact := range contacts {
		if contact.FullName == "" || contact.Relationship == "" {
			continue
		}
		isPrimary := contact.IsPrimary && !primarySeen
		if isPrimary {
			primarySeen = true
		}
		batch.Queue(`
      INSERT INTO employee_emergency_contacts
        (employee_id, full_name, relationship, phone, email, address, is_primary)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, employeeID, contact.FullName, contact.Relationship, nullIfEmpty(contact.Phone),
			nullIfEmpty(contact.Email), nullIfEmpty(contact.Address), isPrimary)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func scanEmergencyContact(row pgx.Row) (EmergencyContact, error) {
	var contact EmergencyContact
	err := row.Scan(
		&contact.ID,
		&contact.EmployeeID,
		&contact.FullName,
		&contact.Relationship,
		&contact.Phone,
		&contact.Email,
		&contact.Address,
		&contact.IsPrimary,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	return contact, err
}
