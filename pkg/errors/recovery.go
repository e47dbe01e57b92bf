package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError は学習・予測の境界で回収されたpanicを表すエラーです。
// カーネル関数やObserverなど利用者が差し込むコードのpanicをここで止めます。
type PanicError struct {
	// PanicValue はpanic()に渡された元の値
	PanicValue interface{}
	// StackTrace はpanic発生時点のスタックトレース
	StackTrace string
	// Operation は回収した場所（例: "SVR.Fit"）
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap はpanic値がerrorであればそれを返します。
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// String はスタックトレースを含む詳細を返します。
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s", e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError は現在のスタックトレースを付与したPanicErrorを作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover はdeferで使用し、panicをエラーに変換します。
//
//	func (s *SVR) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "SVR.Fit")
//	    ...
//	}
//
// 既にエラーが設定されている場合はpanic情報でラップします。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute はfnを実行し、panicをPanicErrorとして返します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
