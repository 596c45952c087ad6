package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// ImportLogEntry 导入日志条目
type ImportLogEntry struct {
	ID            int64     `json:"id"`
	ImportID      string    `json:"importId"`
	Filename      string    `json:"filename"`
	FileSize      int64     `json:"fileSize"`
	Status        string    `json:"status"`
	ItemCount     int       `json:"itemCount"`
	SkippedCount  int       `json:"skippedCount"`
	UniqueCount   int       `json:"uniqueCount"`
	TotalQuantity float64   `json:"totalQuantity"`
	Warnings      []string  `json:"warnings"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
}

// CreateImportLog 创建导入日志，返回行 ID
func (s *Store) CreateImportLog(importID, filename string, fileSize int64) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO import_logs (import_id, filename, file_size, status)
		VALUES (?, ?, ?, 'processing')
	`, importID, filename, fileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// CompleteImportLog 完成导入日志更新
func (s *Store) CompleteImportLog(id int64, itemCount, skippedCount, uniqueCount int, totalQuantity float64, warnings []string, status, errorMessage string) error {
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		warningsJSON = []byte("[]")
	}

	_, err = s.db.Exec(`
		UPDATE import_logs SET
			item_count = ?,
			skipped_count = ?,
			unique_count = ?,
			total_quantity = ?,
			warnings = ?,
			status = ?,
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, itemCount, skippedCount, uniqueCount, totalQuantity, string(warningsJSON), status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// ListImportLogs 最近的导入日志，按开始时间倒序
func (s *Store) ListImportLogs(limit int) ([]ImportLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, import_id, filename, file_size, status,
		       item_count, skipped_count, unique_count, total_quantity,
		       warnings, error_message, started_at
		FROM import_logs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ImportLogEntry, 0, limit)
	for rows.Next() {
		var e ImportLogEntry
		var warningsJSON string
		if err := rows.Scan(&e.ID, &e.ImportID, &e.Filename, &e.FileSize, &e.Status,
			&e.ItemCount, &e.SkippedCount, &e.UniqueCount, &e.TotalQuantity,
			&warningsJSON, &e.ErrorMessage, &e.StartedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(warningsJSON), &e.Warnings); err != nil {
			e.Warnings = []string{}
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// CountImports 导入总次数
func (s *Store) CountImports() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM import_logs").Scan(&n)
	return n, err
}
