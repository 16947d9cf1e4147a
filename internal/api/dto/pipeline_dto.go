package dto

// ==================== 请求 DTO ====================

// CreateSessionRequest 创建流水线会话请求
type CreateSessionRequest struct {
	Title              string `json:"title"`
	ShopifyProductID   int64  `json:"shopify_product_id" binding:"required"`
	PrintifyTemplateID string `json:"printify_template_id" binding:"required"`
	SubjectKind        string `json:"subject_kind"` // 默认 pet
	SeedImageBase64    string `json:"seed_image_base64" binding:"required"`
	SeedImageMime      string `json:"seed_image_mime"`
}

// SessionListRequest 会话列表请求
type SessionListRequest struct {
	Status    string `form:"status"`
	Stage     string `form:"stage"`
	CreatedBy int64  `form:"created_by"`
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}

// ColorPlanRequest 配色方案提交请求
// 商品没有背景色轴时允许提交空方案
type ColorPlanRequest struct {
	SeedColor string            `json:"seed_color"`
	HexCodes  map[string]string `json:"hex_codes"`
}

// RegenerateRequest 单色重生成请求
type RegenerateRequest struct {
	Color    string `json:"color" binding:"required"`
	Feedback string `json:"feedback"`
}

// TogglePositionRequest 位置组批量选择请求
type TogglePositionRequest struct {
	PositionIndex int `json:"position_index"`
}

// GoBackRequest 阶段回退请求
type GoBackRequest struct {
	Target string `json:"target" binding:"required,oneof=generation mockup"`
}

// ==================== 会话视图 ====================

// SessionVO 会话视图对象
type SessionVO struct {
	ID                 int64             `json:"id"`
	Title              string            `json:"title"`
	ShopifyProductID   int64             `json:"shopify_product_id"`
	PrintifyTemplateID string            `json:"printify_template_id"`
	SubjectKind        string            `json:"subject_kind"`
	SeedImageURL       string            `json:"seed_image_url"`
	Stage              string            `json:"stage"`
	Status             string            `json:"status"`
	SeedColor          string            `json:"seed_color,omitempty"`
	NonSeedColors      []string          `json:"non_seed_colors,omitempty"`
	HexCodes           map[string]string `json:"hex_codes,omitempty"`
	SizeShared         bool              `json:"size_shared"`
	ErrorMessage       string            `json:"error_message,omitempty"`
	CreatedBy          int64             `json:"created_by"`
	CreatedAt          string            `json:"created_at"`
	UpdatedAt          string            `json:"updated_at"`
}

// AxisVO 识别出的一条规格轴
type AxisVO struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// AxesVO 三类规格轴识别结果
type AxesVO struct {
	BackgroundColor *AxisVO `json:"background_color,omitempty"`
	Size            *AxisVO `json:"size,omitempty"`
	FrameColor      *AxisVO `json:"frame_color,omitempty"`
}

// SessionDetailResponse 会话详情响应
type SessionDetailResponse struct {
	Session *SessionVO `json:"session"`
	Axes    *AxesVO    `json:"axes"`
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	List  []*SessionVO `json:"list"`
	Total int64        `json:"total"`
}

// ==================== 生成阶段视图 ====================

// GenerationTaskVO 生成任务视图对象
type GenerationTaskVO struct {
	ID           int64  `json:"id"`
	Color        string `json:"color"`
	HexCode      string `json:"hex_code"`
	State        string `json:"state"`
	Breed        string `json:"breed,omitempty"`
	PetName      string `json:"pet_name,omitempty"`
	Feedback     string `json:"feedback,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Attempts     int    `json:"attempts"`
	UpdatedAt    string `json:"updated_at"`
}

// GenerationStatusResponse 生成阶段状态响应
type GenerationStatusResponse struct {
	Tasks      []GenerationTaskVO `json:"tasks"`
	Total      int                `json:"total"`
	DoneCount  int                `json:"done_count"`
	ErrorCount int                `json:"error_count"`
	AllDone    bool               `json:"all_done"`
}

// ==================== Mockup 阶段视图 ====================

// MockupProductVO Mockup 产品视图对象
type MockupProductVO struct {
	ID                int64  `json:"id"`
	Color             string `json:"color"`
	State             string `json:"state"`
	UploadedAssetID   string `json:"uploaded_asset_id,omitempty"`
	ProviderProductID string `json:"provider_product_id,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	ImageCount        int    `json:"image_count"`
}

// MockupImageVO Mockup 渲染图视图对象
type MockupImageVO struct {
	ID              int64    `json:"id"`
	MockupProductID int64    `json:"mockup_product_id"`
	Color           string   `json:"color"`
	PositionIndex   int      `json:"position_index"`
	Src             string   `json:"src"`
	FrameKeys       []string `json:"frame_keys,omitempty"`
	Selected        bool     `json:"selected"`
}

// MockupStatusResponse Mockup 阶段状态响应
type MockupStatusResponse struct {
	Products    []MockupProductVO `json:"products"`
	Total       int               `json:"total"`
	DoneCount   int               `json:"done_count"`
	ErrorCount  int               `json:"error_count"`
	AllTerminal bool              `json:"all_terminal"`
}

// PositionGroupVO 位置分组视图对象
type PositionGroupVO struct {
	PositionIndex int             `json:"position_index"`
	Label         string          `json:"label"`
	Entries       []MockupImageVO `json:"entries"`
}

// PositionGroupsResponse 位置分组响应
type PositionGroupsResponse struct {
	Groups        []PositionGroupVO `json:"groups"`
	SelectedCount int               `json:"selected_count"`
}

// ==================== 匹配与提交视图 ====================

// MappingRowVO 单个变体的匹配结果
type MappingRowVO struct {
	VariantID       int64    `json:"variant_id"`
	VariantTitle    string   `json:"variant_title"`
	BackgroundColor string   `json:"background_color"`
	FrameColor      string   `json:"frame_color"`
	IsSeed          bool     `json:"is_seed"`
	MockupSrcs      []string `json:"mockup_srcs"`
}

// AssignmentVO 去重后的一条图片分配
type AssignmentVO struct {
	ImageURL   string  `json:"image_url"`
	VariantIDs []int64 `json:"variant_ids"`
}

// MatchingPreviewResponse 匹配预览响应
type MatchingPreviewResponse struct {
	Rows            []MappingRowVO `json:"rows"`
	Assignments     []AssignmentVO `json:"assignments"`
	AssignmentCount int            `json:"assignment_count"`
	UnmappedTitles  []string       `json:"unmapped_titles"`
}

// CommitResultResponse 提交结果响应
type CommitResultResponse struct {
	IdempotencyKey  string   `json:"idempotency_key"`
	Status          string   `json:"status"`
	AssignmentCount int      `json:"assignment_count"`
	ArtifactCount   int      `json:"artifact_count"`
	CatalogSkipped  bool     `json:"catalog_skipped"`
	UnmappedTitles  []string `json:"unmapped_titles,omitempty"`
}

// ==================== SSE 进度事件 ====================

// ProgressEvent SSE进度事件
type ProgressEvent struct {
	SessionID int64  `json:"session_id"`
	Stage     string `json:"stage"` // generation, mockup, matching
	Color     string `json:"color,omitempty"`
	State     string `json:"state,omitempty"`
	Message   string `json:"message"`
	AllDone   bool   `json:"all_done,omitempty"`
}
