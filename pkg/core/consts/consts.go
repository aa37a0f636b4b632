package consts

// TraceKey 请求链路追踪ID在 context 中的键
const TraceKey = "traceId"

// TraceHeaderName 跨服务透传追踪信息的请求头
const TraceHeaderName = "X-Trace-Context"

// 上下文中保存登录用户信息的键
const (
	LocalUserID  = "user_id"
	LocalAccount = "account"
	LocalRoles   = "roles"
	ClaimsCtxKey = "claims"
)
