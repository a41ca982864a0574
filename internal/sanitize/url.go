package sanitize

import (
	"fmt"
	"strings"

	"pagetap/pkg/page"
)

// URL 将任意形态的请求目标规范为绝对地址字符串：
// 协议相对地址补页面协议，根相对地址补页面源，其余字符串原样保留。
func URL(target any, loc page.Location) string {
	switch t := target.(type) {
	case string:
		if strings.HasPrefix(t, "//") {
			return loc.Protocol + ":" + t
		}
		if strings.HasPrefix(t, "/") {
			return loc.Origin() + t
		}
		return t
	case page.URLParts:
		return t.String()
	case *page.URLParts:
		if t == nil {
			return ""
		}
		return t.String()
	default:
		return fmt.Sprint(target)
	}
}
