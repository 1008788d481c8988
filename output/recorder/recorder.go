// 决策记录器：把每tick的决策追加写入SQLite，供离线分析与回放对比
package recorder

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tlscontrol-oss/entity"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	step INTEGER NOT NULL,
	tls_id TEXT NOT NULL,
	phase_id INTEGER NOT NULL,
	duration REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_run_step ON decisions (run_id, step);
`

// Recorder 决策记录器
type Recorder struct {
	db    *sql.DB
	runID string
}

// New 创建决策记录器
// 功能：打开（必要时创建）SQLite数据库并确保表结构存在
// 参数：path-数据库文件路径，runID-本次运行的标识
func New(path, runID string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open decision db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure decision schema: %w", err)
	}
	return &Recorder{db: db, runID: runID}, nil
}

// Record 追加一次决策
// 功能：在同一事务内写入本tick所有路口的动作；decision为nil时直接返回
// 说明：按tls id排序写入，保证行序稳定
func (r *Recorder) Record(step int32, decision entity.Decision) error {
	if len(decision) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin decision tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO decisions (run_id, step, tls_id, phase_id, duration)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare decision insert: %w", err)
	}
	defer stmt.Close()

	ids := lo.Keys(decision)
	sort.Strings(ids)
	for _, id := range ids {
		action := decision[id]
		if _, err := stmt.Exec(r.runID, step, id, action.PhaseID, action.Duration); err != nil {
			return fmt.Errorf("insert decision for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Close 关闭数据库
func (r *Recorder) Close() error {
	return r.db.Close()
}
