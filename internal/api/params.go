package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/service"
)

// Scripted objects deliver their metadata in these headers on every
// outbound request. Form body values take precedence; the headers are the
// fallback so bare llHTTPRequest calls work without duplicating fields.
const (
	headerShard         = "X-SecondLife-Shard"
	headerRegion        = "X-SecondLife-Region"
	headerOwnerKey      = "X-SecondLife-Owner-Key"
	headerOwnerName     = "X-SecondLife-Owner-Name"
	headerObjectKey     = "X-SecondLife-Object-Key"
	headerObjectName    = "X-SecondLife-Object-Name"
	headerLocalPosition = "X-SecondLife-Local-Position"
)

func param(r *http.Request, field, header string) string {
	if value := r.FormValue(field); value != "" {
		return value
	}
	if header != "" {
		return r.Header.Get(header)
	}
	return ""
}

// regionName strips the grid-coordinate suffix the region header carries
// ("Test Region (123456, 123456)" -> "Test Region").
func regionName(value string) string {
	if idx := strings.LastIndex(value, " ("); idx > 0 {
		return value[:idx]
	}
	return value
}

// position extracts the object position from x/y/z form values or the
// local-position header "(x, y, z)".
func position(r *http.Request) (x, y, z float64, ok bool, err error) {
	xStr, yStr, zStr := r.FormValue("x"), r.FormValue("y"), r.FormValue("z")
	if xStr == "" && yStr == "" && zStr == "" {
		header := r.Header.Get(headerLocalPosition)
		if header == "" {
			return 0, 0, 0, false, nil
		}
		parts := strings.Split(strings.Trim(header, "() "), ",")
		if len(parts) != 3 {
			return 0, 0, 0, false, fmt.Errorf("%w: position", service.ErrInvalidFormat)
		}
		xStr, yStr, zStr = parts[0], parts[1], parts[2]
	}

	x, err = strconv.ParseFloat(strings.TrimSpace(xStr), 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: x", service.ErrInvalidFormat)
	}
	y, err = strconv.ParseFloat(strings.TrimSpace(yStr), 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: y", service.ErrInvalidFormat)
	}
	z, err = strconv.ParseFloat(strings.TrimSpace(zStr), 64)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: z", service.ErrInvalidFormat)
	}
	return x, y, z, true, nil
}

func registerRequest(r *http.Request) (models.RegisterRequest, error) {
	req := models.RegisterRequest{
		ShardName:  param(r, "shard", headerShard),
		RegionName: regionName(param(r, "region", headerRegion)),
		OwnerName:  param(r, "owner_name", headerOwnerName),
		OwnerKey:   param(r, "owner_key", headerOwnerKey),
		ObjectKey:  param(r, "object_key", headerObjectKey),
		ObjectName: param(r, "object_name", headerObjectName),
		Address:    r.FormValue("address"),
	}

	x, y, z, ok, err := position(r)
	if err != nil {
		return req, err
	}
	if !ok {
		return req, fmt.Errorf("%w: position", service.ErrMissingArgument)
	}
	req.PositionX, req.PositionY, req.PositionZ = x, y, z
	return req, nil
}

func updateRequest(r *http.Request) (models.UpdateRequest, error) {
	req := models.UpdateRequest{
		PrivateToken: r.FormValue("auth_token"),
		ObjectKey:    param(r, "object_key", headerObjectKey),
		ObjectName:   param(r, "object_name", headerObjectName),
		Address:      r.FormValue("address"),
	}

	x, y, z, ok, err := position(r)
	if err != nil {
		return req, err
	}
	if ok {
		req.HasPosition = true
		req.PositionX, req.PositionY, req.PositionZ = x, y, z
	}
	return req, nil
}
