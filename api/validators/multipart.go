package validators

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/angelmondragon/pos-catalog-backend/internal/images"
	pkgerrors "github.com/angelmondragon/pos-catalog-backend/pkg/errors"
)

const multipartMemory = 1 << 20

// IsMultipart reports whether the request carries multipart/form-data.
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// DecodeBody decodes a JSON or multipart request into dest and returns the
// uploaded file under fileField, if any. Callers must invoke cleanup once the
// upload has been consumed.
func DecodeBody(r *http.Request, dest any, fileField string) (upload *images.Upload, cleanup func(), err error) {
	cleanup = func() {}
	if !IsMultipart(r) {
		return nil, cleanup, DecodeJSONBody(r, dest)
	}
	return DecodeMultipart(r, dest, fileField)
}

// DecodeMultipart maps the text parts of a multipart form onto dest's json
// fields and validates the result like a JSON body. Only fields present in
// the form are set, so pointer fields keep presence semantics.
func DecodeMultipart(r *http.Request, dest any, fileField string) (*images.Upload, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large")
		}
		return nil, noop, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	payload, err := formToJSON(form.Value, dest)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	if err := decodeJSON(bytes.NewReader(payload), dest); err != nil {
		cleanup()
		return nil, noop, err
	}

	upload, err := openUpload(form, fileField)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	if upload == nil {
		return nil, cleanup, nil
	}
	file := upload.Content.(multipart.File)
	return upload, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

func openUpload(form *multipart.Form, field string) (*images.Upload, error) {
	if field == "" {
		return nil, nil
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	header := headers[0]
	file, err := header.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
	}
	return &images.Upload{Filename: header.Filename, Size: header.Size, Content: file}, nil
}

// formToJSON renders form values as a JSON object using dest's field types:
// numeric and boolean fields are emitted raw, everything else as strings.
func formToJSON(values map[string][]string, dest any) ([]byte, error) {
	kinds := jsonFieldKinds(dest)
	out := make(map[string]json.RawMessage, len(values))
	invalid := map[string]string{}
	for key, vals := range values {
		kind, known := kinds[key]
		if !known || len(vals) == 0 {
			continue
		}
		raw := strings.TrimSpace(vals[0])
		switch kind {
		case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64, reflect.Bool:
			if !json.Valid([]byte(raw)) || raw == "" || strings.HasPrefix(raw, "\"") {
				invalid[key] = "is invalid"
				continue
			}
			out[key] = json.RawMessage(raw)
		default:
			quoted, err := json.Marshal(vals[0])
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form value")
			}
			out[key] = quoted
		}
	}
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(invalid)
	}
	return json.Marshal(out)
}

func jsonFieldKinds(dest any) map[string]reflect.Kind {
	kinds := map[string]reflect.Kind{}
	t := reflect.TypeOf(dest)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return kinds
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		kinds[name] = ft.Kind()
	}
	return kinds
}
