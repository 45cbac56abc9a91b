// Package testsuite starts throwaway infrastructure for integration tests.
package testsuite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/database"
)

const mysqlImage = "mysql:8.0.36"

// MySQLSuite runs the repository migrations against a MySQL container and
// exposes a GORM handle to it. Suites skip when no container runtime is
// available or with -short.
type MySQLSuite struct {
	suite.Suite
	Ctx       context.Context
	Container *mysql.MySQLContainer
	DB        *gorm.DB
}

func (s *MySQLSuite) SetupSuite() {
	t := s.T()
	if testing.Short() {
		t.Skip("Skipping MySQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	s.Ctx = context.Background()

	var err error
	s.Container, err = mysql.Run(s.Ctx, mysqlImage,
		mysql.WithDatabase("paddlesync_test"),
		mysql.WithUsername("paddlesync"),
		mysql.WithPassword("paddlesync"),
	)
	s.Require().NoError(err)

	connStr, err := s.Container.ConnectionString(s.Ctx, "multiStatements=true")
	s.Require().NoError(err)

	sourceURL := "file://" + MigrationsDir()
	log.Infof("[TestSuite] Running migrations from: %s", sourceURL)
	m, err := migrate.New(sourceURL, "mysql://"+connStr)
	s.Require().NoError(err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.Require().NoError(err)
	}
	srcErr, dbErr := m.Close()
	s.Require().NoError(errors.Join(srcErr, dbErr))

	dsn := strings.Replace(connStr, "multiStatements=true", "charset=utf8mb4&parseTime=True&loc=UTC", 1)
	s.DB, err = database.Open(dsn)
	s.Require().NoError(err)
	s.Require().NoError(database.AutoMigrate(s.DB))
}

func (s *MySQLSuite) TearDownSuite() {
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.Container != nil {
		if err := testcontainers.TerminateContainer(s.Container); err != nil {
			log.Warnf("[TestSuite] Failed to terminate mysql container: %v", err)
		}
	}
}

// TruncateTables empties the given tables between tests.
func (s *MySQLSuite) TruncateTables(tables ...string) {
	for _, table := range tables {
		s.Require().NoError(s.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)).Error)
	}
}

// MigrationsDir returns the absolute path of the SQL migrations.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}
