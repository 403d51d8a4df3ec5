package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/credential"
	"github.com/hitoshi/storeadmin/internal/middleware"
	"github.com/hitoshi/storeadmin/internal/model"
)

// writeServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
// リモートAPIの401はクレデンシャルが失効した状態なので、残存Cookieを
// すべて削除してから401を返す（以降のリクエストはRoute Guardがログインへ誘導する）。
func writeServiceError(w http.ResponseWriter, r *http.Request, cookieCfg credential.CookieConfig, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		credential.NewCookieStore(w, r, cookieCfg).RemoveAll()
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 正規化済みのリモートAPIエラーは上流エラーとして返す
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamError(reqErr.Message))
		return
	}

	// それ以外は内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
