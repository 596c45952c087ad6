package store

import "fmt"

// SaveFieldOverride 保存人工确认的字段映射
func (s *Store) SaveFieldOverride(field, address string) error {
	_, err := s.db.Exec(`
		INSERT INTO field_overrides (field, address) VALUES (?, ?)
		ON CONFLICT(field) DO UPDATE SET address = ?, updated_at = CURRENT_TIMESTAMP
	`, field, address, address)
	if err != nil {
		return fmt.Errorf("failed to save field override: %w", err)
	}
	return nil
}

// DeleteFieldOverride 删除字段映射覆盖
func (s *Store) DeleteFieldOverride(field string) error {
	_, err := s.db.Exec("DELETE FROM field_overrides WHERE field = ?", field)
	return err
}

// ListFieldOverrides 读取全部字段映射覆盖
func (s *Store) ListFieldOverrides() (map[string]string, error) {
	rows, err := s.db.Query("SELECT field, address FROM field_overrides")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, address string
		if err := rows.Scan(&field, &address); err != nil {
			return nil, err
		}
		out[field] = address
	}

	return out, rows.Err()
}
