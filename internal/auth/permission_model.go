package auth

import "github.com/pandora-hackathon/jejak-air/internal/model"

// Capability 操作能力,每个对外操作对应一项能力检查
type Capability string

const (
	CapManageBatch     Capability = "manage_batch"     // 创建/修改/删除批次
	CapSubmitLabTest   Capability = "submit_lab_test"  // 提交检测结果
	CapMarkShipped     Capability = "mark_shipped"     // 标记批次出运
	CapMarkReceived    Capability = "mark_received"    // 标记批次接收
	CapAddActivity     Capability = "add_activity"     // 手动追加活动
	CapManageFarm      Capability = "manage_farm"      // 创建/修改/删除养殖场
	CapManageReference Capability = "manage_reference" // 城市/实验室/商品参考数据管理
	CapViewDashboard   Capability = "view_dashboard"   // 查看统计面板
)

// roleCapabilities 角色 -> 能力映射。
// 显式枚举,替代按属性名动态分发的旧做法
var roleCapabilities = map[string][]Capability{
	model.RoleAdmin: {
		CapManageBatch, CapSubmitLabTest, CapMarkShipped, CapMarkReceived,
		CapAddActivity, CapManageFarm, CapManageReference, CapViewDashboard,
	},
	model.RoleFarmOwner: {
		CapManageBatch, CapMarkShipped, CapAddActivity, CapManageFarm, CapViewDashboard,
	},
	model.RoleLabAssistant: {
		CapSubmitLabTest, CapAddActivity, CapViewDashboard,
	},
	model.RoleReceiver: {
		CapMarkReceived, CapAddActivity,
	},
}

// CanPerform 判断角色是否具备某项能力
func CanPerform(role string, capability Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}
