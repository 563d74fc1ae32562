// Package logging: фабрика логгеров поверх charmbracelet/log.
// Весь вывод идёт в stderr: stdout остаётся под данные (JSON, YAML, таблицы).
//
// Setup вызывается один раз при старте, до New: дочерний логгер копирует
// настройки в момент создания.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// Setup для CLI: verbose → debug, quiet → error (quiet важнее).
func Setup(verbose, quiet, jsonFormat bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = log.ErrorLevel
	}
	apply(level, jsonFormat)
}

// SetupNamed для сервера: уровень и формат строками из окружения.
// Неизвестный уровень трактуется как info.
func SetupNamed(level, format string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	apply(lvl, strings.EqualFold(format, "json"))
}

func apply(level log.Level, jsonFormat bool) {
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)
	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// New: логгер с префиксом компонента: INFO <database> connected.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// SetOutput подменяет вывод логгера по умолчанию (для тестов).
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
