// Package poller 封装内核就绪事件接口（Linux 下为 epoll）。
// 只提供四个原语：创建、修改兴趣集、带超时等待、关闭。
// 事件归属与分发由上层 event loop 处理。
package poller

// WaitEvents 单次 Wait 返回的事件批大小
const WaitEvents = 1024
