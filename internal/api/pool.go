// internal/api/pool.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type initializePoolRequest struct {
	StakeMint  string `json:"stake_mint" binding:"required"`
	RewardMint string `json:"reward_mint" binding:"required"`
	RewardRate uint64 `json:"reward_rate"`
}

type rateRequest struct {
	RewardRate uint64 `json:"reward_rate"`
}

type faucetRequest struct {
	Asset   string `json:"asset" binding:"required"`
	Account string `json:"account" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

func (h *Handler) listPools(c *gin.Context) {
	pools, err := h.svc.ListPools(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]poolResponse, 0, len(pools))
	for _, p := range pools {
		out = append(out, poolView(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getPool(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	p, err := h.svc.GetPool(c.Request.Context(), addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, poolView(p))
}

func (h *Handler) getStake(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	owner, ok := paramKey(c, "owner")
	if !ok {
		return
	}
	view, err := h.svc.GetStake(c.Request.Context(), addr, owner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stakeView(view))
}

func (h *Handler) initializePool(c *gin.Context) {
	var req initializePoolRequest
	if !bind(c, &req) {
		return
	}
	stakeMint, err := parseKey("stake_mint", req.StakeMint)
	if err != nil {
		badRequest(c, err)
		return
	}
	rewardMint, err := parseKey("reward_mint", req.RewardMint)
	if err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.svc.InitializePool(c.Request.Context(), caller(c), stakeMint, rewardMint, req.RewardRate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, poolView(p))
}

func (h *Handler) stake(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.svc.Stake(c.Request.Context(), caller(c), addr, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": r.Amount, "credited": r.Credited})
}

func (h *Handler) withdraw(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.svc.Withdraw(c.Request.Context(), caller(c), addr, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": r.Amount, "rewards": r.Rewards})
}

func (h *Handler) claimRewards(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	paid, err := h.svc.ClaimRewards(c.Request.Context(), caller(c), addr)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": paid})
}

func (h *Handler) setRewardRate(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req rateRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.SetRewardRate(c.Request.Context(), caller(c), addr, req.RewardRate)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, poolView(p))
}

func (h *Handler) fundRewards(c *gin.Context) {
	addr, ok := paramKey(c, "address")
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.FundRewards(c.Request.Context(), caller(c), addr, req.Amount); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"funded": req.Amount})
}

func (h *Handler) balance(c *gin.Context) {
	asset, ok := paramKey(c, "asset")
	if !ok {
		return
	}
	account, ok := paramKey(c, "account")
	if !ok {
		return
	}
	amount, err := h.svc.Balance(c.Request.Context(), asset, account)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset.String(), "account": account.String(), "amount": amount})
}

func (h *Handler) faucet(c *gin.Context) {
	var req faucetRequest
	if !bind(c, &req) {
		return
	}
	asset, err := parseKey("asset", req.Asset)
	if err != nil {
		badRequest(c, err)
		return
	}
	account, err := parseKey("account", req.Account)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Credit(c.Request.Context(), asset, account, req.Amount); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credited": req.Amount})
}
