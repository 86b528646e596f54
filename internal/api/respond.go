package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; every payload here is a small object.
const maxBodyBytes = 1 << 20

// respond writes a JSON response built by fn.
func respond(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// respondError writes the {"code": N, "message": ...} error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// respondInternal logs the failure detail and answers with a generic 500.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal server error")
}

// decodeObject reads the request body and walks its top-level object, calling
// fn once per field. Unknown fields are skipped so clients may send extras.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}

	d := jx.DecodeBytes(body)
	return d.Obj(func(d *jx.Decoder, key string) error {
		return fn(d, key)
	})
}

// decodeDecimal parses a JSON number or numeric string into a decimal.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(n.String())
	}
}

// money emits a decimal amount as a JSON number with two decimal places.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.StringFixed(2))
}

// timestamp emits a time in RFC 3339.
func timestamp(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}
