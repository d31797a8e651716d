// 命令行入口：
// - 加载 settings.yaml（可选 .env）并初始化日志
// - profile：查看/编辑站点配置，导入导出与分享链接
// - submit / requests：提交与管理占星请求
// - watch：跟随其他进程的数据变化并与远端对账；doctor：环境检查
package main

import (
	"os"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
