package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	pkglogger "github.com/wyfcoding/optionpricing/pkg/logger"
	"gorm.io/gorm"
)

func TestDialectorFor(t *testing.T) {
	cases := map[string]string{
		"mysql":    "mysql",
		"":         "mysql",
		"postgres": "postgres",
	}
	for driver, want := range cases {
		d, err := dialectorFor(Config{Driver: driver, DSN: "dsn"})
		if err != nil {
			t.Fatalf("%q: %v", driver, err)
		}
		if d.Name() != want {
			t.Fatalf("%q: dialect=%s want=%s", driver, d.Name(), want)
		}
	}
	if _, err := dialectorFor(Config{Driver: "sqlite", DSN: "x"}); err == nil {
		t.Fatal("sqlite should be rejected")
	}
	if _, err := dialectorFor(Config{Driver: "mysql"}); err == nil {
		t.Fatal("empty DSN should be rejected")
	}
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	prev := pkglogger.Get()
	pkglogger.SetDefault(pkglogger.New(pkglogger.Config{Level: "debug"}, &buf))
	defer pkglogger.SetDefault(prev)

	l := NewGormLogger(false, 50*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast query should be silent when disabled: %s", buf.String())
	}

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record-not-found should not log as error: %s", buf.String())
	}

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	if !bytes.Contains(buf.Bytes(), []byte("Slow query detected")) {
		t.Fatalf("slow query not logged: %s", buf.String())
	}

	buf.Reset()
	l.Trace(context.Background(), time.Now(), sql, errors.New("deadlock"))
	if !bytes.Contains(buf.Bytes(), []byte("SQL execution failed")) {
		t.Fatalf("error not logged: %s", buf.String())
	}
}
