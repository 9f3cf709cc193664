// internal/store/sqlite/store.go
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// Store 在单个 sqlite 库上同时实现四个存储契约
// 情景图是邻接表，关系数据走普通表，演示和小规模部署用一个文件即可
type Store struct {
	db *sql.DB
}

// Open 打开（必要时初始化）sqlite 数据库
func Open(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return &Store{db: db}, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// placeholders 生成 "?, ?, ?" 形式的占位符串
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// 编译期校验四个契约都被实现
var (
	_ store.SceneGraphStore       = (*Store)(nil)
	_ store.CharacterBindingStore = (*Store)(nil)
	_ store.ConversationStore     = (*Store)(nil)
	_ store.CharacterStore        = (*Store)(nil)
)
