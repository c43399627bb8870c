package gateway

import (
	"net/http"

	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
)

// CatalogHandler 图鉴查询处理器
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler 创建图鉴处理器
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// RegisterHandlers 注册HTTP处理器
func (h *CatalogHandler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/catalog/characters", h.serve(func() interface{} { return h.catalog.Characters }))
	mux.HandleFunc("/catalog/items", h.serve(func() interface{} { return h.catalog.Equipment }))
	mux.HandleFunc("/catalog/materials", h.serve(func() interface{} { return h.catalog.Materials }))
	mux.HandleFunc("/catalog/enemies", h.serve(func() interface{} { return h.catalog.Enemies }))
}

func (h *CatalogHandler) serve(list func() interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
			return
		}
		protocol.SendSuccess(w, "查询成功", list())
	}
}
