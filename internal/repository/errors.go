package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConflict возвращается при нарушении уникальности (повторный тендер, SKU или RUT).
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference возвращается при ссылке на несуществующего клиента или товар.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrUnavailable возвращается, если хранилище недоступно; ничего не зафиксировано.
	ErrUnavailable = errors.New("store unavailable")
	// ErrMarginViolation возвращается, если цена продажи не превышает себестоимость товара.
	ErrMarginViolation = errors.New("sale price must exceed product cost")
	// ErrInvalidData возвращается при нарушении CHECK-ограничений схемы.
	ErrInvalidData = errors.New("invalid data")

	// ErrTenderNotFound возвращается, если тендер не найден.
	ErrTenderNotFound = errors.New("tender not found")
	// ErrClientNotFound возвращается, если клиент не найден.
	ErrClientNotFound = errors.New("client not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
)

// classifyError сопоставляет ошибку драйвера с ошибками пакета, сохраняя исходную в цепочке.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		case pgErr.Code == pgerrcode.CheckViolation || pgErr.Code == pgerrcode.NotNullViolation:
			return fmt.Errorf("%w: %w", ErrInvalidData, err)
		case pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsOperatorIntervention(pgErr.Code):
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || isConnectionError(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}

func isConnectionError(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || pgconn.Timeout(err) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "conn closed")
}
