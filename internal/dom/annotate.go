// internal/dom/annotate.go
package dom

// AnnotateScript runs inside a live page. It records the rendered
// visibility of every interactive element in VisibleAttr and returns the
// annotated document markup.
const AnnotateScript = `(() => {
  const sel = "input, select, textarea, button, [role='button']";
  for (const el of document.querySelectorAll(sel)) {
    let shown = false;
    try {
      const style = window.getComputedStyle(el);
      const rect = el.getBoundingClientRect();
      shown = style.display !== "none" &&
        style.visibility !== "hidden" &&
        rect.width > 0 && rect.height > 0 &&
        !(el.tagName === "INPUT" && (el.type || "").toLowerCase() === "hidden");
    } catch (e) {
      shown = false;
    }
    el.setAttribute("` + VisibleAttr + `", shown ? "true" : "false");
  }
  return document.documentElement.outerHTML;
})()`
