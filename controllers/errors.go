package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/expertqa/policy"
	"github.com/cppla/expertqa/utils"
)

// Business codes for policy refusals. HTTP status follows the refusal kind.
const (
	codeUnauthenticated = 40110
	codeInvalidInput    = 40010
	codeForbidden       = 40301
	codeGateClosed      = 40320
	codeNotFound        = 40404
	codeStaleConflict   = 40910
	codeInvalidState    = 42201
	codeInternal        = 50000
)

// policyStatus maps a refusal to its HTTP status and business code.
func policyStatus(pe *policy.Error) (int, int) {
	switch pe.Kind {
	case policy.KindForbidden:
		if pe.Reason == policy.ReasonNotAuthenticated {
			return http.StatusUnauthorized, codeUnauthenticated
		}
		return http.StatusForbidden, codeForbidden
	case policy.KindPolicyGateClosed:
		return http.StatusForbidden, codeGateClosed
	case policy.KindInvalidStateTransition:
		return http.StatusUnprocessableEntity, codeInvalidState
	case policy.KindStaleConflict:
		return http.StatusConflict, codeStaleConflict
	case policy.KindInvalidInput:
		if pe.Reason == policy.ReasonNotFound {
			return http.StatusNotFound, codeNotFound
		}
		return http.StatusBadRequest, codeInvalidInput
	}
	return http.StatusInternalServerError, codeInternal
}

// respondPolicyError writes the envelope for err. Policy refusals carry their
// kind and reason in data; anything else is logged and reported as a 500.
func respondPolicyError(ctx *gin.Context, err error) {
	if pe, ok := policy.AsError(err); ok {
		status, code := policyStatus(pe)
		utils.Respond(ctx, status, code, pe.Message, gin.H{"kind": pe.Kind, "reason": pe.Reason})
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	utils.L().Error("request failed",
		zap.String("path", ctx.FullPath()),
		zap.String("request_id", ctx.GetString(utils.ContextRequestIDKey)),
		zap.Error(err),
	)
	utils.Error(ctx, http.StatusInternalServerError, codeInternal, "internal server error")
}

// errNotFound is the refusal for ids that do not resolve to content.
func errNotFound() error {
	return policy.Decision{Kind: policy.KindInvalidInput, Reason: policy.ReasonNotFound}.Err()
}
