package service

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/namanlalitnyu/RapidEdit/config"
	"github.com/namanlalitnyu/RapidEdit/model"
	"github.com/patrickmn/go-cache"
)

// SessionStore 进程内会话存储，按浏览器Cookie区分会话
// 工作流按钮操作天然串行，不支持同一会话的并发修改
type SessionStore struct {
	cookieName string
	store      *cache.Cache
}

func NewSessionStore(cfg *config.SessionConfig) *SessionStore {
	return &SessionStore{
		cookieName: cfg.CookieName,
		store:      cache.New(cfg.TTL, 2*cfg.TTL),
	}
}

// Get 返回当前请求对应的会话状态，必要时创建新会话
func (s *SessionStore) Get(c *gin.Context) *model.SessionState {
	id := s.sessionID(c)
	if v, ok := s.store.Get(id); ok {
		return v.(*model.SessionState)
	}

	state := &model.SessionState{}
	s.store.SetDefault(id, state)
	return state
}

// Save 回写会话状态并刷新过期时间
func (s *SessionStore) Save(c *gin.Context, state *model.SessionState) {
	s.store.SetDefault(s.sessionID(c), state)
}

// Reset 清空当前会话的全部状态
func (s *SessionStore) Reset(c *gin.Context) *model.SessionState {
	state := s.Get(c)
	state.Reset()
	s.Save(c, state)
	return state
}

const sessionIDKey = "session_id"

// sessionID 从Cookie读取会话ID，缺失时签发新ID
// 新签发的ID缓存在请求上下文中，同一请求内的多次读写命中同一会话
func (s *SessionStore) sessionID(c *gin.Context) string {
	if id := c.GetString(sessionIDKey); id != "" {
		return id
	}

	id, err := c.Cookie(s.cookieName)
	if err != nil || id == "" {
		id = uuid.NewString()
		c.SetCookie(s.cookieName, id, 0, "/", "", false, true)
	}

	c.Set(sessionIDKey, id)
	return id
}
