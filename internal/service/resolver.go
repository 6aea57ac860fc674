package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

// Resolution is the outcome of a code lookup and the scheme that matched.
type Resolution struct {
	Voucher *model.Voucher `json:"voucher"`
	Scheme  model.CodeType `json:"scheme"`
}

type CodeResolver interface {
	// ResolveByCode tries the primary QR field, then active short codes,
	// then active static codes, and stops at the first match. The QR field
	// must match exactly; short and static codes are case-insensitive.
	ResolveByCode(ctx context.Context, raw string) (*Resolution, error)
}

type codeResolver struct {
	vouchers repository.VoucherRepository
}

func NewCodeResolver(vouchers repository.VoucherRepository) CodeResolver {
	return &codeResolver{vouchers: vouchers}
}

type lookup struct {
	scheme model.CodeType
	find   func(ctx context.Context, code string) (*model.Voucher, error)
}

func (r *codeResolver) ResolveByCode(ctx context.Context, raw string) (*Resolution, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return nil, ErrInvalidCode
	}

	order := []lookup{
		{scheme: model.CodeTypeQR, find: r.vouchers.GetByQRCode},
		{scheme: model.CodeTypeShort, find: func(ctx context.Context, code string) (*model.Voucher, error) {
			return r.vouchers.GetByActiveCode(ctx, model.CodeTypeShort, code)
		}},
		{scheme: model.CodeTypeStatic, find: func(ctx context.Context, code string) (*model.Voucher, error) {
			return r.vouchers.GetByActiveCode(ctx, model.CodeTypeStatic, code)
		}},
	}

	for _, step := range order {
		voucher, err := step.find(ctx, code)
		if err == nil {
			return &Resolution{Voucher: voucher, Scheme: step.scheme}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("resolve %s code: %w", step.scheme, err)
		}
	}
	return nil, ErrVoucherNotFound
}
