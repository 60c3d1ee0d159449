// internal/api/presale.go
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/export"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/vesting"
)

type initializePresaleRequest struct {
	Mint        string `json:"mint" binding:"required"`
	PaymentMint string `json:"payment_mint"`

	PublicSalePrice uint64 `json:"public_sale_price"`
	// DiscountPercent defaults to presale.DefaultDiscountPercent when omitted.
	DiscountPercent *uint64 `json:"discount_percent"`
	MaxTokens       uint64  `json:"max_tokens" binding:"required"`
	MaxSol          uint64  `json:"max_sol" binding:"required"`
	MinPurchase     uint64  `json:"min_purchase"`
	MaxPurchase     uint64  `json:"max_purchase"`

	PriceFeed      string `json:"price_feed"`
	UsdPrice       uint64 `json:"usd_price"`
	MaxManualPrice uint64 `json:"max_manual_price"`

	PresaleStart    int64 `json:"presale_start"`
	PresaleEnd      int64 `json:"presale_end"`
	PublicSaleStart int64 `json:"public_sale_start"`
	CliffPeriod     int64 `json:"cliff_period"`
	VestingPeriod   int64 `json:"vesting_period"`
	VestingInterval int64 `json:"vesting_interval"`

	AirdropPercentages []int `json:"airdrop_percentages"`
	// DefaultTranches selects the 10% upfront plus ten 9% tranches schedule.
	DefaultTranches bool `json:"default_tranches"`
}

func (r initializePresaleRequest) params() (presale.Params, error) {
	mint, err := parseKey("mint", r.Mint)
	if err != nil {
		return presale.Params{}, err
	}
	payment := solana.SolMint
	if r.PaymentMint != "" {
		if payment, err = parseKey("payment_mint", r.PaymentMint); err != nil {
			return presale.Params{}, err
		}
	}
	var percentages []uint8
	if r.DefaultTranches {
		if r.AirdropPercentages != nil {
			return presale.Params{}, fmt.Errorf("airdrop_percentages and default_tranches are exclusive")
		}
		percentages = vesting.DefaultTranches()
	}
	if r.AirdropPercentages != nil {
		percentages = make([]uint8, 0, len(r.AirdropPercentages))
		for _, pct := range r.AirdropPercentages {
			if pct < 0 || pct > 100 {
				return presale.Params{}, fmt.Errorf("airdrop_percentages: %d out of range", pct)
			}
			percentages = append(percentages, uint8(pct))
		}
	}
	discount := presale.DefaultDiscountPercent
	if r.DiscountPercent != nil {
		discount = *r.DiscountPercent
	}
	return presale.Params{
		Mint:               mint,
		PaymentMint:        payment,
		PublicSalePrice:    r.PublicSalePrice,
		DiscountPercent:    discount,
		MaxTokens:          r.MaxTokens,
		MaxSol:             r.MaxSol,
		MinPurchase:        r.MinPurchase,
		MaxPurchase:        r.MaxPurchase,
		PriceFeed:          r.PriceFeed,
		UsdPrice:           r.UsdPrice,
		MaxManualPrice:     r.MaxManualPrice,
		PresaleStart:       r.PresaleStart,
		PresaleEnd:         r.PresaleEnd,
		PublicSaleStart:    r.PublicSaleStart,
		CliffPeriod:        r.CliffPeriod,
		VestingPeriod:      r.VestingPeriod,
		VestingInterval:    r.VestingInterval,
		AirdropPercentages: percentages,
	}, nil
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type overrideRequest struct {
	Price uint64 `json:"price"`
}

type refundRequest struct {
	Tokens uint64 `json:"tokens"`
}

type claimRequest struct {
	// Contributor defaults to the caller. Admins may claim on behalf of others.
	Contributor string `json:"contributor"`
	Amount      uint64 `json:"amount"`
}

type airdropRequest struct {
	Instructions []struct {
		Recipient    string `json:"recipient" binding:"required"`
		TrancheIndex int    `json:"tranche_index"`
	} `json:"instructions" binding:"required"`
}

func (h *Handler) listPresales(c *gin.Context) {
	list, err := h.svc.ListPresales(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]presaleResponse, 0, len(list))
	for _, p := range list {
		out = append(out, presaleView(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getPresale(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	view, err := h.svc.GetPresale(c.Request.Context(), addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, presaleDetail(view))
}

func (h *Handler) getAllocation(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	contributor, ok := paramKey(c, "contributor")
	if !ok {
		return
	}
	view, err := h.svc.GetAllocation(c.Request.Context(), addr, contributor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, allocationView(view))
}

// exportAllocations streams every allocation of a presale as CSV or JSON.
func (h *Handler) exportAllocations(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	opts := export.Options{Format: format, OnlyClaimable: c.Query("claimable") == "true"}
	if v := c.Query("min_tokens"); v != "" {
		if opts.MinTokens, err = strconv.ParseUint(v, 10, 64); err != nil {
			badRequest(c, fmt.Errorf("min_tokens: %w", err))
			return
		}
	}

	views, err := h.svc.ListAllocations(c.Request.Context(), addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if _, err := h.exporter.Write(c.Writer, addr.String(), views, opts); err != nil {
		h.logger.Error("Allocation export failed", zap.String("presale", addr.String()), zap.Error(err))
	}
}

func (h *Handler) initializePresale(c *gin.Context) {
	var req initializePresaleRequest
	if !bind(c, &req) {
		return
	}
	params, err := req.params()
	if err != nil {
		badRequest(c, err)
		return
	}
	if params.MaxManualPrice == 0 {
		params.MaxManualPrice = h.opts.MaxManualPrice
	}
	p, err := h.svc.InitializePresale(c.Request.Context(), caller(c), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, presaleView(p))
}

type updateParamsRequest struct {
	PublicSalePrice *uint64 `json:"public_sale_price"`
	MinPurchase     *uint64 `json:"min_purchase"`
	MaxPurchase     *uint64 `json:"max_purchase"`
	MaxSol          *uint64 `json:"max_sol"`
	MaxTokens       *uint64 `json:"max_tokens"`
}

func (h *Handler) updateParams(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req updateParamsRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.UpdateParams(c.Request.Context(), caller(c), addr, presale.ParamsUpdate{
		PublicSalePrice: req.PublicSalePrice,
		MinPurchase:     req.MinPurchase,
		MaxPurchase:     req.MaxPurchase,
		MaxSol:          req.MaxSol,
		MaxTokens:       req.MaxTokens,
	})
	h.respondPresale(c, p, err)
}

func (h *Handler) setPause(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req pauseRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.SetPause(c.Request.Context(), caller(c), addr, req.Paused)
	h.respondPresale(c, p, err)
}

func (h *Handler) setPriceOverride(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req overrideRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.SetPriceOverride(c.Request.Context(), caller(c), addr, req.Price)
	h.respondPresale(c, p, err)
}

func (h *Handler) closePresale(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	p, err := h.svc.ClosePresale(c.Request.Context(), caller(c), addr)
	h.respondPresale(c, p, err)
}

func (h *Handler) respondPresale(c *gin.Context, p *presale.Presale, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, presaleView(p))
}

func (h *Handler) fundVault(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.FundVault(c.Request.Context(), caller(c), addr, req.Amount); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"funded": req.Amount})
}

func (h *Handler) contribute(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Contribute(c.Request.Context(), caller(c), addr, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requested":  res.Requested,
		"accepted":   res.Accepted,
		"tokens":     res.Tokens,
		"unit_price": res.UnitPrice,
		"clipped":    res.Clipped,
	})
}

func (h *Handler) claim(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req claimRequest
	if !bind(c, &req) {
		return
	}
	who := caller(c)
	contributor := who
	if req.Contributor != "" {
		var err error
		if contributor, err = parseKey("contributor", req.Contributor); err != nil {
			badRequest(c, err)
			return
		}
	}
	released, err := h.svc.Claim(c.Request.Context(), who, addr, contributor, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributor": contributor.String(), "released": released})
}

func (h *Handler) refund(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req refundRequest
	if !bind(c, &req) {
		return
	}
	receipt, err := h.svc.Refund(c.Request.Context(), caller(c), addr, req.Tokens)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": receipt.Tokens, "value": receipt.Value})
}

func (h *Handler) distributeAirdrops(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req airdropRequest
	if !bind(c, &req) {
		return
	}
	batch := make([]presale.AirdropInstruction, 0, len(req.Instructions))
	for _, in := range req.Instructions {
		recipient, err := parseKey("recipient", in.Recipient)
		if err != nil {
			badRequest(c, err)
			return
		}
		batch = append(batch, presale.AirdropInstruction{Recipient: recipient, TrancheIndex: in.TrancheIndex})
	}

	results, err := h.svc.DistributeAirdrops(c.Request.Context(), caller(c), addr, batch)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		out = append(out, gin.H{
			"recipient":     r.Recipient.String(),
			"tranche_index": r.TrancheIndex,
			"amount":        r.Amount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
